package readme

import (
	"net/url"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Badge is one image discovered in a README, linked or bare.
type Badge struct {
	Alt        string `json:"alt,omitempty"`
	ImageURL   string `json:"image_url"`
	TargetURL  string `json:"target_url,omitempty"`
	ImageHost  string `json:"image_host,omitempty"`
	TargetHost string `json:"target_host,omitempty"`
}

// Raw HTML anchors goldmark keeps as opaque blocks:
// <a href="..."><img src="..." alt="..."></a>
var htmlBadgePattern = regexp.MustCompile(`<a\s+href="([^"]+)"[^>]*>\s*<img\s+src="([^"]+)"(?:\s+alt="([^"]*)")?[^>]*>\s*</a>`)

// Extract returns every badge-shaped image in the document: markdown
// image links, bare markdown images, then raw HTML anchor/img pairs.
func Extract(content []byte) []Badge {
	var badges []Badge

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if img, ok := child.(*ast.Image); ok {
					badges = append(badges, newBadge(
						string(img.Text(content)),
						string(img.Destination),
						string(node.Destination),
					))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			badges = append(badges, newBadge(
				string(node.Text(content)),
				string(node.Destination),
				"",
			))
		}
		return ast.WalkContinue, nil
	})

	for _, match := range htmlBadgePattern.FindAllSubmatch(content, -1) {
		badges = append(badges, newBadge(string(match[3]), string(match[2]), string(match[1])))
	}
	return badges
}

func newBadge(alt, image, target string) Badge {
	b := Badge{Alt: alt, ImageURL: image, TargetURL: target}
	if u, err := url.Parse(b.ImageURL); err == nil {
		b.ImageHost = u.Host
	}
	if u, err := url.Parse(b.TargetURL); err == nil {
		b.TargetHost = u.Host
	}
	return b
}
