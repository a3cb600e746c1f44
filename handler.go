package main

import (
	"fmt"
	"io"
	"net/http"
)

// demoHandler serves the PWA's static files and prints a console report
// for every GET request. The report replaces the usual access log: raw
// path, the `id` parameter if present, and a decoded summary of the
// `event` parameter when one was included.
type demoHandler struct {
	files http.Handler
	out   io.Writer
	mets  *metrics
}

func newDemoHandler(root string, out io.Writer, mets *metrics) *demoHandler {
	return &demoHandler{
		files: http.FileServer(http.Dir(root)),
		out:   out,
		mets:  mets,
	}
}

func (h *demoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.report(r)
	}
	if h.mets != nil {
		h.mets.requests.Inc()
	}
	h.files.ServeHTTP(w, r)
}

func (h *demoHandler) report(r *http.Request) {
	fmt.Fprintf(h.out, "\n📨 Request: %s\n", r.URL.RequestURI())

	query := r.URL.Query()
	ids, ok := query["id"]
	if !ok {
		return
	}
	fmt.Fprintf(h.out, "🎯 Event ID: %s\n", ids[0])

	data := query.Get("event")
	if data == "" {
		// The PWA drops the event param from share URLs past ~500KB.
		// Advisory only, nothing is measured here.
		fmt.Fprintln(h.out, "ℹ️  Event data not included (likely > 500KB)")
		return
	}

	fmt.Fprintf(h.out, "📦 Event Data: %s\n", truncate(data, 50))
	fmt.Fprintf(h.out, "📏 Event Data Size: %d characters\n", len(data))

	ev, err := decodeEventParam(data)
	if err != nil {
		if h.mets != nil {
			h.mets.decodeFailures.Inc()
		}
		fmt.Fprintf(h.out, "❌ Error decoding event: %v\n", err)
		return
	}
	if h.mets != nil {
		h.mets.decoded.Inc()
	}

	fmt.Fprintln(h.out, "✅ Event decoded successfully:")
	fmt.Fprintf(h.out, "   Kind: %s\n", ev.KindLabel())
	fmt.Fprintf(h.out, "   Author: %s\n", ev.AuthorPreview())
	fmt.Fprintf(h.out, "   Content: %s\n", ev.ContentPreview())
	fmt.Fprintf(h.out, "   Created: %s\n", ev.CreatedLabel())
}
