package revsport

import (
	"strings"

	"golang.org/x/net/html"
)

// extractCSRFToken walks the login page looking for an <input name="_token">
// field and returns its value attribute.
func extractCSRFToken(body []byte) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(string(body)))

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var name, value string
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				}
			}
			if name == "_token" && value != "" {
				return value, true
			}
		}
	}
}

// looksLikeLoginForm reports whether the body still contains login-form
// markers, used to decide whether a post-login verification GET succeeded.
func looksLikeLoginForm(body []byte) bool {
	z := html.NewTokenizer(strings.NewReader(string(body)))

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "name" && (attr.Val == "password" || attr.Val == "_token") {
					return true
				}
			}
		}
	}
}
