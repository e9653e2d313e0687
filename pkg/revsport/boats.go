package revsport

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

var (
	typeCodeRe    = regexp.MustCompile(`^(1X|2X|4X|8X|2-|4-|4\+|8\+)(/-)?`)
	weightRe      = regexp.MustCompile(`(\d{2,3})\s*KG`)
	nicknameRe    = regexp.MustCompile(`\(([^()]+)\)\s*$`)
	calendarLinks = []string{"/bookings/calendar/", "/bookings/retrieve-calendar/"}
)

// boatCard is one bookable-asset card parsed out of the bookings index page.
type boatCard struct {
	title       string
	externalID  string
	hasDanger   bool
	hasCalendar bool
}

// GetBoats GETs the bookings index page and parses every bookable asset
// card into a Boat.
func (a *Adapter) GetBoats(ctx context.Context) ([]adapter.Boat, error) {
	_, body, err := a.doAuthenticated(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/bookings", nil)
		if err != nil {
			return nil, err
		}
		setBrowserHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	cards, err := parseBoatCards(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrParse, err)
	}

	boats := make([]adapter.Boat, 0, len(cards))
	for _, c := range cards {
		if !c.hasCalendar {
			a.recordWarning(fmt.Sprintf("skipped card %q: no calendar link", c.title))
			continue
		}
		boats = append(boats, boatFromCard(c))
	}

	return boats, nil
}

// parseBoatCards walks the bookings index HTML, grouping each top-level
// card element (class containing "boat-card" or "asset-card") into a
// boatCard by scanning its title text, calendar link, and danger badge.
func parseBoatCards(body []byte) ([]boatCard, error) {
	z := html.NewTokenizer(strings.NewReader(string(body)))

	var cards []boatCard
	var cur *boatCard
	var depth int
	var inCard bool
	var titleBuf strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if cur != nil {
				finalizeCard(cur, titleBuf.String())
				cards = append(cards, *cur)
			}
			return cards, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			class := attrValue(tok, "class")

			if isCardStart(class) {
				if cur != nil {
					finalizeCard(cur, titleBuf.String())
					cards = append(cards, *cur)
				}
				cur = &boatCard{hasDanger: strings.Contains(class, "danger")}
				titleBuf.Reset()
				inCard = true
				depth = 1
				continue
			}

			if inCard {
				depth++
				if tok.Data == "a" {
					if href := attrValue(tok, "href"); href != "" {
						if id, ok := extractCalendarID(href); ok {
							cur.externalID = id
							cur.hasCalendar = true
						}
					}
				}
				if strings.Contains(class, "danger") {
					cur.hasDanger = true
				}
			}

		case html.TextToken:
			if inCard {
				titleBuf.WriteString(string(z.Text()))
				titleBuf.WriteString(" ")
			}

		case html.EndTagToken:
			if inCard {
				depth--
				if depth <= 0 {
					finalizeCard(cur, titleBuf.String())
					cards = append(cards, *cur)
					cur = nil
					inCard = false
				}
			}
		}
	}
}

func finalizeCard(c *boatCard, rawTitle string) {
	c.title = strings.TrimSpace(collapseSpaces(rawTitle))
}

func isCardStart(class string) bool {
	return strings.Contains(class, "boat-card") || strings.Contains(class, "asset-card")
}

func extractCalendarID(href string) (string, bool) {
	for _, prefix := range calendarLinks {
		if idx := strings.Index(href, prefix); idx != -1 {
			rest := href[idx+len(prefix):]
			rest = strings.SplitN(rest, "?", 2)[0]
			rest = strings.SplitN(rest, "/", 2)[0]
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}

// boatFromCard applies the type/category/classification rules to a parsed
// card's title text.
func boatFromCard(c boatCard) adapter.Boat {
	title := c.title

	if strings.HasPrefix(strings.ToUpper(title), "TINNIE") {
		return adapter.Boat{
			ExternalID:    c.externalID,
			Name:          title,
			Category:      "tinnie",
			IsDamaged:     isDamaged(title, c.hasDanger),
			DamagedReason: damagedReason(title, c.hasDanger),
		}
	}

	var typ *string
	if m := typeCodeRe.FindStringSubmatch(title); m != nil {
		code := m[1]
		if m[2] != "" {
			code = code + m[2]
		}
		typ = &code
	}

	classification := "T"
	if strings.Contains(strings.ToUpper(title), "RACER") {
		classification = "R"
	}

	var weightKg *int
	if m := weightRe.FindStringSubmatch(title); m != nil {
		if w, err := strconv.Atoi(m[1]); err == nil {
			weightKg = &w
		}
	}

	name := title
	if m := nicknameRe.FindStringSubmatch(title); m != nil {
		name = strings.TrimSpace(m[1])
	}

	return adapter.Boat{
		ExternalID:     c.externalID,
		Name:           name,
		Type:           typ,
		Category:       "race",
		Classification: &classification,
		WeightKg:       weightKg,
		IsDamaged:      isDamaged(title, c.hasDanger),
		DamagedReason:  damagedReason(title, c.hasDanger),
	}
}

func isDamaged(title string, hasDanger bool) bool {
	return hasDanger || strings.Contains(strings.ToLower(title), "damaged")
}

func damagedReason(title string, hasDanger bool) *string {
	if !isDamaged(title, hasDanger) {
		return nil
	}
	reason := "Marked as damaged in RevSport"
	return &reason
}

func attrValue(tok html.Token, key string) string {
	for _, attr := range tok.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
