// Package scaffold writes the starter files for a new profile repo:
// config, README with markers, and the refresh workflow.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

// The workflow is copied verbatim: its ${{ }} expressions would fight
// the template parser.
const workflowFile = "profile.yml"

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type params struct {
	Username string
}

// Run writes the starter files into dir and returns the paths created.
// Existing files are skipped unless force is set.
func Run(dir, username string, force bool, log *zap.Logger) ([]string, error) {
	if username == "" {
		username = "your-username"
	}
	p := params{Username: username}

	files := []struct {
		rel  string
		tmpl string // empty means verbatim copy of the workflow
	}{
		{rel: "profileforge.yaml", tmpl: "profileforge.yaml.tmpl"},
		{rel: "README.md", tmpl: "README.md.tmpl"},
		{rel: filepath.Join(".github", "workflows", workflowFile)},
	}

	var written []string
	for _, f := range files {
		target := filepath.Join(dir, f.rel)
		if !force {
			if _, err := os.Stat(target); err == nil {
				log.Info("file exists, skipping", zap.String("path", target))
				continue
			}
		}

		content, err := renderStarter(f.tmpl, p)
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("create dir for %s: %w", target, err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", target, err)
		}
		log.Info("file written", zap.String("path", target))
		written = append(written, target)
	}
	return written, nil
}

func renderStarter(tmpl string, p params) ([]byte, error) {
	if tmpl == "" {
		raw, err := templateFS.ReadFile(path.Join("templates", workflowFile))
		if err != nil {
			return nil, fmt.Errorf("read workflow template: %w", err)
		}
		return raw, nil
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, p); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl, err)
	}
	return buf.Bytes(), nil
}
