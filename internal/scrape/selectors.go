package scrape

// Selectors locate the parts of a listing page the walker moves through.
type Selectors struct {
	Body       string `json:"body"`
	OrderCard  string `json:"order_card"`
	DetailLink string `json:"detail_link"`
	// NextPage are tried in order, the first visible and enabled match with
	// a link to a page not walked yet is followed.
	NextPage []string `json:"next_page"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Body:       "body",
		OrderCard:  "div.a-box-group.a-spacing-base",
		DetailLink: "a.a-link-normal[href*='order-details']",
		NextPage: []string{
			"[data-cy='pagination-next']",
			".a-pagination .a-last a",
			"a[href*='startIndex']",
		},
	}
}
