package analyzer

import (
	"sort"
	"strings"
)

const defaultColor = "#888888"

// frameworkKeywords maps language -> framework -> substrings matched
// against the lowercased repo name and description.
var frameworkKeywords = map[string]map[string][]string{
	"Python": {
		"Django":     {"django"},
		"Flask":      {"flask"},
		"FastAPI":    {"fastapi"},
		"Pandas":     {"pandas"},
		"PyTorch":    {"torch"},
		"TensorFlow": {"tensorflow"},
		"Streamlit":  {"streamlit"},
	},
	"JavaScript": {
		"React":   {"react"},
		"Vue":     {"vue"},
		"Angular": {"angular"},
		"Next.js": {"next"},
		"Express": {"express"},
		"Node.js": {"node"},
	},
	"TypeScript": {
		"React":   {"react"},
		"Angular": {"angular"},
		"NestJS":  {"nest"},
		"Vue":     {"vue"},
	},
	"Java": {
		"Spring Boot": {"spring-boot"},
		"Hibernate":   {"hibernate"},
		"Android":     {"android"},
	},
	"Go": {
		"Gin":  {"gin"},
		"Echo": {"echo"},
	},
	"Rust": {
		"Actix":  {"actix"},
		"Rocket": {"rocket"},
	},
	"PHP": {
		"Laravel": {"laravel"},
		"Symfony": {"symfony"},
	},
	"C#": {
		".NET":  {"dotnet"},
		"Unity": {"unity"},
	},
}

// frameworkFiles maps language -> lowercased top-level entry -> framework.
// Presence of the entry in the repo root is taken as direct evidence.
var frameworkFiles = map[string]map[string]string{
	"Python": {
		"manage.py": "Django",
	},
	"JavaScript": {
		"next.config.js":  "Next.js",
		"next.config.mjs": "Next.js",
		"angular.json":    "Angular",
		"vue.config.js":   "Vue",
		"nest-cli.json":   "NestJS",
	},
	"TypeScript": {
		"next.config.js":  "Next.js",
		"next.config.ts":  "Next.js",
		"next.config.mjs": "Next.js",
		"angular.json":    "Angular",
		"vue.config.js":   "Vue",
		"nest-cli.json":   "NestJS",
	},
	"PHP": {
		"artisan":      "Laravel",
		"symfony.lock": "Symfony",
	},
	"C#": {
		"projectsettings": "Unity",
	},
}

var languageColors = map[string]string{
	"Python":     "#3572A5",
	"Java":       "#b07219",
	"JavaScript": "#f1e05a",
	"TypeScript": "#2b7489",
	"C++":        "#f34b7d",
	"HTML":       "#e34c26",
	"CSS":        "#563d7c",
	"C#":         "#178600",
	"Go":         "#00ADD8",
	"Rust":       "#dea584",
	"PHP":        "#4F5D95",
	"Ruby":       "#701516",
	"Swift":      "#ffac45",
	"Kotlin":     "#A97BFF",
}

// detect returns the frameworks evidenced for lang by the repo text or
// its top-level entries, sorted for stable accumulation.
func (a *Analyzer) detect(lang, text string, topLevel []string) []string {
	found := make(map[string]bool)
	for fw, words := range a.keywords[lang] {
		for _, w := range words {
			if strings.Contains(text, w) {
				found[fw] = true
				break
			}
		}
	}
	if files := frameworkFiles[lang]; len(files) > 0 {
		for _, entry := range topLevel {
			if fw, ok := files[strings.ToLower(entry)]; ok {
				found[fw] = true
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for fw := range found {
		out = append(out, fw)
	}
	sort.Strings(out)
	return out
}

func (a *Analyzer) color(lang string) string {
	if c, ok := a.colors[lang]; ok {
		return c
	}
	return defaultColor
}

// mergeKeywords layers config tables over the builtin ones. An override
// replaces the keyword list for that framework only.
func mergeKeywords(over map[string]map[string][]string) map[string]map[string][]string {
	merged := make(map[string]map[string][]string, len(frameworkKeywords))
	for lang, fws := range frameworkKeywords {
		m := make(map[string][]string, len(fws))
		for fw, words := range fws {
			m[fw] = words
		}
		merged[lang] = m
	}
	for lang, fws := range over {
		m := merged[lang]
		if m == nil {
			m = make(map[string][]string, len(fws))
			merged[lang] = m
		}
		for fw, words := range fws {
			m[fw] = words
		}
	}
	return merged
}

func mergeColors(over map[string]string) map[string]string {
	merged := make(map[string]string, len(languageColors)+len(over))
	for lang, c := range languageColors {
		merged[lang] = c
	}
	for lang, c := range over {
		merged[lang] = c
	}
	return merged
}
