package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/JakeFAU/aliexpress-search-crawler/internal/product"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Strategy names reported alongside the extraction result.
const (
	StrategyEmbedded = "embedded"
	StrategyLinked   = "ldjson"
	StrategyCards    = "cards"
	StrategyNone     = "none"
)

// Content is the ephemeral raw page handed to the pipeline: the response
// body plus, when the page went through the rendering engine, a queryable
// DOM handle.
type Content struct {
	URL        string
	PageNumber int
	Body       []byte
	DOM        *goquery.Document
}

// PipelineConfig tunes the extraction strategies. Zero values select the
// defaults observed across site revisions.
type PipelineConfig struct {
	MaxDepth      int
	DataMarkers   []string
	CardSelectors []string
}

// Markers of embedded data blocks, in discovery order. Page revisions move
// the render data between these assignments.
var defaultDataMarkers = []string{
	"window._dida_config_",
	"window.runParams",
	"__INITIAL_STATE__",
}

var defaultCardSelectors = []string{
	`[class*="search-card-item"]`,
	`[class*="list--gallery--"]`,
	`[data-widget="item"]`,
	`.product-item`,
	`[class*="CardWrapper"]`,
}

var productIDFromHref = regexp.MustCompile(`/item/(\d+)(?:\.html)?`)

// Pipeline runs the ordered extraction strategies over raw page content.
// Strategy order is fixed: embedded data blocks, then linked data, then
// rendered product cards. The first strategy yielding at least one complete
// record wins; an empty result is a normal outcome, never an error.
type Pipeline struct {
	locator   *Locator
	norm      Normalizer
	markers   []string
	cards     string
	ldMapper  linkedDataMapper
	cardChain cardSelectorChains
	logger    *zap.Logger
}

// NewPipeline builds a Pipeline.
func NewPipeline(cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	markers := cfg.DataMarkers
	if len(markers) == 0 {
		markers = defaultDataMarkers
	}
	cards := cfg.CardSelectors
	if len(cards) == 0 {
		cards = defaultCardSelectors
	}
	return &Pipeline{
		locator:   NewLocator(cfg.MaxDepth),
		markers:   markers,
		cards:     strings.Join(cards, ", "),
		cardChain: defaultCardChains,
		logger:    logger,
	}
}

// Extract returns the complete records found on the page and the name of the
// strategy that produced them.
func (p *Pipeline) Extract(content Content) ([]product.Record, string) {
	if recs := p.fromEmbeddedData(content.Body); len(recs) > 0 {
		return recs, StrategyEmbedded
	}
	if recs := p.fromLinkedData(content); len(recs) > 0 {
		return recs, StrategyLinked
	}
	if content.DOM != nil {
		if recs := p.fromCards(content.DOM); len(recs) > 0 {
			return recs, StrategyCards
		}
	}
	return nil, StrategyNone
}

// fromEmbeddedData scans the raw text for known data-block markers, parses
// the assigned JSON object, and picks the candidate array whose items
// normalize into the most complete records.
func (p *Pipeline) fromEmbeddedData(body []byte) []product.Record {
	for _, marker := range p.markers {
		blob, ok := embeddedJSON(body, marker)
		if !ok {
			continue
		}
		var root any
		if err := jsonAPI.Unmarshal(blob, &root); err != nil {
			p.logger.Debug("embedded data block is not valid JSON",
				zap.String("marker", marker), zap.Error(err))
			continue
		}
		var best []product.Record
		for _, cand := range p.locator.Locate(root) {
			recs := p.normalizeAll(cand.Items)
			if len(recs) > len(best) {
				best = recs
			}
		}
		if len(best) > 0 {
			return best
		}
	}
	return nil
}

func (p *Pipeline) normalizeAll(items []any) []product.Record {
	recs := make([]product.Record, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if rec, ok := p.norm.Normalize(m); ok && rec.Complete() {
			recs = append(recs, rec)
		}
	}
	return recs
}

// embeddedJSON locates marker in body and slices out the balanced JSON
// object assigned to it.
func embeddedJSON(body []byte, marker string) ([]byte, bool) {
	at := bytes.Index(body, []byte(marker))
	if at < 0 {
		return nil, false
	}
	open := bytes.IndexByte(body[at:], '{')
	if open < 0 {
		return nil, false
	}
	start := at + open

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return body[start : i+1], true
			}
		}
	}
	return nil, false
}

// fromLinkedData parses schema.org ld+json script blocks, which carry a
// known shape and need no locator pass.
func (p *Pipeline) fromLinkedData(content Content) []product.Record {
	doc := content.DOM
	if doc == nil {
		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(content.Body))
		if err != nil {
			p.logger.Debug("parse html for linked data", zap.Error(err))
			return nil
		}
		doc = parsed
	}

	var recs []product.Record
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var root any
		if err := jsonAPI.Unmarshal([]byte(s.Text()), &root); err != nil {
			p.logger.Debug("linked data block is not valid JSON", zap.Error(err))
			return
		}
		recs = append(recs, p.ldMapper.products(root)...)
	})
	return recs
}

// fromCards extracts fields from rendered product-card elements using
// per-field selector chains, mirroring the JSON fallback-chain approach on
// markup instead.
func (p *Pipeline) fromCards(doc *goquery.Document) []product.Record {
	var recs []product.Record
	doc.Find(p.cards).Each(func(_ int, card *goquery.Selection) {
		if rec, ok := p.cardChain.extract(card); ok {
			recs = append(recs, rec)
		}
	})
	return recs
}

// cardSelectorChains holds the ordered CSS selectors tried for each field of
// a rendered product card.
type cardSelectorChains struct {
	title    []string
	price    []string
	origin   []string
	rating   []string
	reviews  []string
	sold     []string
	store    []string
	storeURL []string
}

var defaultCardChains = cardSelectorChains{
	title:    []string{`[class*="title"]`, "h1", "h2", "h3"},
	price:    []string{`[class*="price--current"]`, `[class*="Price--"]`, `[class*="snow-price"]`, `[class*="price"] span`, ".price"},
	origin:   []string{`[class*="price--original"]`, `[class*="OriginalPrice"]`, `[class*="origin"]`},
	rating:   []string{`[class*="rating"]`, `[class*="star"]`},
	reviews:  []string{`[class*="review"]`},
	sold:     []string{`[class*="sold"]`, `[class*="trade"]`, `[class*="order"]`},
	store:    []string{`[class*="store"]`, `[class*="Shop"]`},
	storeURL: []string{`a[href*="/store/"]`},
}

func (c cardSelectorChains) extract(card *goquery.Selection) (product.Record, bool) {
	link := card.Find(`a[href*="/item/"], a[href*="aliexpress.com"]`).First()
	href, _ := link.Attr("href")
	match := productIDFromHref.FindStringSubmatch(href)
	if match == nil {
		return product.Record{}, false
	}
	id := match[1]

	title := firstText(card, c.title)
	if title == "" {
		title, _ = link.Attr("title")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		return product.Record{}, false
	}

	price := firstText(card, c.price)
	currency := CurrencyFromText(price)
	if currency == "" {
		currency = defaultCurrency
	}

	rec := product.Record{
		ProductID:     id,
		Title:         title,
		Price:         price,
		OriginalPrice: firstText(card, c.origin),
		Currency:      currency,
		Rating:        leadingNumber(firstText(card, c.rating)),
		ReviewsCount:  asInt(firstText(card, c.reviews)),
		Orders:        ParseSoldCount(firstText(card, c.sold)),
		StoreName:     firstText(card, c.store),
		StoreURL:      AbsoluteURL(firstAttr(card, c.storeURL, "href")),
		ImageURL:      NormalizeImageURL(cardImage(card)),
		ProductURL:    AbsoluteURL(href),
	}
	return rec, true
}

func firstText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(card *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		if val, ok := card.Find(sel).First().Attr(attr); ok && val != "" {
			return val
		}
	}
	return ""
}

func cardImage(card *goquery.Selection) string {
	if src, ok := card.Find(`img[src*="alicdn"]`).First().Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := card.Find("img[data-src]").First().Attr("data-src"); ok && src != "" {
		return src
	}
	src, _ := card.Find("img").First().Attr("src")
	return src
}

var ratingPattern = regexp.MustCompile(`[\d.]+`)

func leadingNumber(text string) string {
	return ratingPattern.FindString(text)
}
