package checker

import "github.com/JasonVinion/Pengu/internal/model"

// disclosureHeaders is the fixed set of headers that reveal proxy use to
// the destination even when the origin IP itself is hidden.
var disclosureHeaders = []string{
	"X-Forwarded-For",
	"X-Forwarded-Host",
	"Forwarded",
	"Via",
	"X-Real-Ip",
	"Proxy-Connection",
}

// Classify decides the anonymity level from the captured echo alone; it
// performs no network calls. Precedence, first match wins:
//
//  1. the target saw our real client IP        -> transparent
//  2. a disclosure header survived the proxy   -> anonymous
//  3. neither                                  -> elite
//
// A transparent verdict wins even when disclosure headers are present: a
// proxy that leaks the origin address has already failed at hiding us,
// whatever else it adds.
func Classify(echo *Echo, realClientIP string) model.Anonymity {
	if echo == nil || echo.Origin == "" || realClientIP == "" {
		return model.AnonymityUnknown
	}

	if echo.SeenIP() == realClientIP || echo.OriginContains(realClientIP) {
		return model.AnonymityTransparent
	}

	for _, h := range disclosureHeaders {
		if echo.Header(h) != "" {
			return model.AnonymityAnonymous
		}
	}
	return model.AnonymityElite
}
