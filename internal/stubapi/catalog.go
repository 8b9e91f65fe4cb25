package stubapi

import (
	"context"
	"strings"

	"bytenews/internal/model"
	"bytenews/internal/session"
)

type entry struct {
	country  string
	category string
	article  model.Article
}

const placeholderImage = "https://placehold.co/600x400/cccccc/000000?text=No+Image"

// catalog is a small fixed corpus so the stub works offline.
var catalog = []entry{
	{"us", "technology", model.Article{Title: "Chipmakers Race to Expand Capacity", Summary: "New fabs are coming online across Arizona and Texas.", Description: "Semiconductor firms announce expansion plans.", Content: "Semiconductor manufacturers announced new fabrication plants this week as demand for AI accelerators keeps climbing.", Source: "Tech Daily", URL: "https://stub.bytenews.local/us/technology/chips"}},
	{"us", "technology", model.Article{Title: "Open Source Model Tops Benchmarks", Summary: "A community model beat proprietary rivals on reasoning tests.", Description: "Researchers publish benchmark results.", Content: "An open source language model outperformed several commercial systems on a new reasoning benchmark… [+1840 chars]", Source: "AI Weekly", URL: "https://stub.bytenews.local/us/technology/model"}},
	{"us", "technology", model.Article{Title: "Browser Vendors Agree on Privacy Standard", Summary: "A shared tracking-protection spec lands in all major browsers.", Description: "Privacy features converge.", Content: "The major browser vendors agreed on a common standard for tracking protection.", Source: "Web Wire", URL: "https://stub.bytenews.local/us/technology/privacy"}},
	{"us", "technology", model.Article{Title: "Satellite Internet Reaches Rural Schools", Summary: "Thousands of classrooms are now connected.", Description: "Connectivity program expands.", Content: "A federal program connected rural schools through low-orbit satellite service.", Source: "Tech Daily", URL: "https://stub.bytenews.local/us/technology/satellite"}},
	{"us", "business", model.Article{Title: "Retail Sales Beat Expectations", Summary: "Consumer spending rose for a third month.", Description: "Retail data surprises economists.", Content: "Retail sales rose more than forecast as consumers kept spending on travel and dining.", Source: "Market Watchers", URL: "https://stub.bytenews.local/us/business/retail"}},
	{"us", "business", model.Article{Title: "Airline Merger Clears Review", Summary: "Regulators approved the deal with conditions.", Description: "Two carriers will combine.", Content: "Antitrust regulators approved the merger after the airlines agreed to give up gates at two hubs.", Source: "Business Line", URL: "https://stub.bytenews.local/us/business/airline"}},
	{"us", "health", model.Article{Title: "New Guidance on Sleep and Heart Health", Summary: "Cardiologists add sleep to the list of vital signs.", Description: "Updated recommendations published.", Content: "A cardiology association added sleep duration to its list of essential measures for heart health.", Source: "Health Now", URL: "https://stub.bytenews.local/us/health/sleep"}},
	{"us", "health", model.Article{Title: "Flu Season Starts Early", Summary: "Clinics report rising cases in the south.", Description: "Public health officials urge vaccination.", Content: "", Source: "Health Now", URL: "https://stub.bytenews.local/us/health/flu"}},
	{"us", "sports", model.Article{Title: "Underdogs Clinch Playoff Spot", Summary: "A late goal sealed the season.", Description: "Playoff race ends.", Content: "A stoppage-time goal sent the underdogs into the playoffs for the first time in a decade.", Source: "Sports Hub", URL: "https://stub.bytenews.local/us/sports/playoffs"}},
	{"gb", "sports", model.Article{Title: "Cup Final Set for Wembley", Summary: "Two northern clubs will meet in the final.", Description: "Semi-final results.", Content: "Both semi-finals went to extra time before the finalists were decided.", Source: "BBC Sport", URL: "https://stub.bytenews.local/gb/sports/cup"}},
	{"gb", "sports", model.Article{Title: "Cricket Squad Named for Winter Tour", Summary: "Three uncapped players were selected.", Description: "Selectors announce squad.", Content: "The selectors named three uncapped players for the winter tour.", Source: "BBC Sport", URL: "https://stub.bytenews.local/gb/sports/cricket"}},
	{"gb", "finance", model.Article{Title: "Bank Holds Interest Rates", Summary: "The base rate is unchanged for now.", Description: "Monetary policy decision.", Content: "The central bank kept its base rate unchanged, citing sticky services inflation.", Source: "City Desk", URL: "https://stub.bytenews.local/gb/finance/rates"}},
	{"gb", "world", model.Article{Title: "Climate Talks Reach Draft Deal", Summary: "Negotiators agreed on a finance framework.", Description: "Summit nears conclusion.", Content: "Negotiators agreed a draft text on climate finance after overnight talks.", Source: "World Report", URL: "https://stub.bytenews.local/gb/world/climate"}},
	{"in", "science", model.Article{Title: "Lunar Rover Finds Sulphur", Summary: "Instruments confirmed sulphur near the south pole.", Description: "Mission update.", Content: "The rover's spectrometer confirmed sulphur in the lunar south polar region.", Source: "Science Today", URL: "https://stub.bytenews.local/in/science/lunar"}},
	{"de", "politics", model.Article{Title: "Coalition Agrees Budget", Summary: "The three parties settled their dispute.", Description: "Budget compromise.", Content: "The governing coalition agreed a budget after weeks of negotiations.", Source: "Berlin Briefing", URL: "https://stub.bytenews.local/de/politics/budget"}},
	{"us", "entertainment", model.Article{Title: "Festival Lineup Announced", Summary: "Headliners include three reunion acts.", Description: "Summer festival news.", Content: "Organizers announced a lineup featuring three reunited bands.", Source: "Culture Beat", URL: "https://stub.bytenews.local/us/entertainment/festival"}},
}

// catalogSource answers queries from the fixed corpus the way the upstream
// news provider does: category queries hit top headlines for the country,
// everything else is a keyword search.
type catalogSource struct{}

func (catalogSource) Content(_ context.Context, _ *session.Session, q model.Query) ([]model.Article, error) {
	var out []model.Article
	for _, e := range catalog {
		if q.Category != "" {
			if e.category != q.Category || e.country != q.Country {
				continue
			}
		} else if !matches(e, q.Text) {
			continue
		}
		a := e.article
		if a.ImageURL == "" {
			a.ImageURL = placeholderImage
		}
		out = append(out, a)
		if len(out) == pageSize {
			break
		}
	}
	return out, nil
}

func matches(e entry, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || text == "latest news" {
		return true
	}
	hay := strings.ToLower(e.article.Title + " " + e.article.Description + " " + e.article.Content + " " + e.category)
	for _, word := range strings.Fields(text) {
		if strings.Contains(hay, word) {
			return true
		}
	}
	return false
}
