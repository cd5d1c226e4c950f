// Package fetcher retrieves rendered catalog pages.
//
// Two backends implement Fetcher: HTTPFetcher speaks plain HTTP through resty,
// BrowserFetcher drives a headless Chrome through chromedp. Both share the
// interstitial handling: when the page title shows the anti-bot challenge,
// the page is polled again under a bounded WaitPolicy. A challenge that never
// clears is not an error. The last content is returned and downstream parsing
// simply finds nothing in it.
//
// Both backends read cookies from a session.Store before a fetch and write
// the cookies the site set back into it afterwards.
package fetcher
