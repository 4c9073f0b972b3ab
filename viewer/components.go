package viewer

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/aouyang1/photoslideshow/slideshow"
)

const htmxSrc = "https://unpkg.com/htmx.org@1.9.12"

// boundKeys filters keydown events so only slideshow shortcuts reach the server.
const boundKeys = `key=='ArrowLeft'||key=='ArrowRight'||key==' '||key=='r'||key=='R'`

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) printf(format string, args ...any) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// Page is the whole document; the slideshow fragment inside it refreshes itself.
func Page(v slideshow.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.printf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		h.printf("<meta charset=\"utf-8\">\n<title>Photo Slideshow</title>\n")
		h.printf("<link rel=\"stylesheet\" href=\"/static/slideshow.css\">\n")
		h.printf("<script src=\"%s\"></script>\n", htmxSrc)
		h.printf("</head>\n")
		h.printf("<body hx-target=\"#slideshow\" hx-swap=\"outerHTML\">\n")
		h.printf("<div id=\"keys\" hidden hx-post=\"/keys\" hx-trigger=\"keydown[%s] from:body\" "+
			"hx-vals='js:{key: event.key}'></div>\n", esc(boundKeys))
		h.printf("<script>document.addEventListener('keydown', function (e) { if (e.key === ' ') { e.preventDefault(); } });</script>\n")
		if h.err != nil {
			return h.err
		}
		if err := Slideshow(v).Render(ctx, w); err != nil {
			return err
		}
		h.printf("\n</body>\n</html>\n")
		return h.err
	})
}

// Slideshow renders the fragment for the view's status.
func Slideshow(v slideshow.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.printf("<div id=\"slideshow\" class=\"slideshow-container\" data-status=\"%s\" "+
			"hx-get=\"/view\" hx-trigger=\"every 1s\">\n", v.Status)

		switch v.Status {
		case slideshow.StatusLoading:
			h.printf("<div class=\"loading\">\n<div class=\"loading-spinner\"></div>\n<p>Loading photos...</p>\n</div>\n")
		case slideshow.StatusError:
			h.printf("<div class=\"error\">\n<h2>Error</h2>\n<p>%s</p>\n", esc(v.Error))
			h.printf("<button class=\"retry-button\" hx-post=\"/actions/refresh\">Try Again</button>\n</div>\n")
		case slideshow.StatusEmpty:
			h.printf("<div class=\"no-photos\">\n<h2>No Photos Yet</h2>\n")
			h.printf("<p>Take some photos with the photobooth to see them here!</p>\n")
			h.printf("<button class=\"refresh-button\" hx-post=\"/actions/refresh\">Refresh</button>\n</div>\n")
		default:
			renderReady(h, v)
		}

		h.printf("</div>")
		return h.err
	})
}

func renderReady(h *htmlWriter, v slideshow.View) {
	current, ok := v.Current()
	if !ok {
		return
	}

	disabled := ""
	if !v.CanNavigate() {
		disabled = " disabled"
	}

	h.printf("<div class=\"photo-display\">\n")
	h.printf("<img src=\"%s\" alt=\"Photo %d\" class=\"main-photo\" data-photo-id=\"%s\" "+
		"onerror=\"this.onerror=null;this.src='%s'\">\n",
		esc(photoFileURL(current)), v.Cursor+1, esc(current.ID), placeholderImageURL)
	h.printf("<button class=\"nav-button nav-previous\" hx-post=\"/actions/prev\"%s>&#8249;</button>\n", disabled)
	h.printf("<button class=\"nav-button nav-next\" hx-post=\"/actions/next\"%s>&#8250;</button>\n", disabled)
	h.printf("</div>\n")

	playClass, playLabel := "paused", "&#9654;&#65039;"
	if v.Playing {
		playClass, playLabel = "playing", "&#9208;&#65039;"
	}

	h.printf("<div class=\"controls\">\n")
	h.printf("<button class=\"play-pause-button %s\" hx-post=\"/actions/toggle\">%s</button>\n", playClass, playLabel)
	h.printf("<div class=\"slide-counter\">%d / %d</div>\n", v.Cursor+1, len(v.Photos))
	h.printf("<div class=\"speed-controls\">\n<label>Speed: </label>\n")
	h.printf("<select name=\"interval_ms\" hx-post=\"/actions/interval\" hx-trigger=\"change\">\n")
	for _, d := range slideshow.Intervals {
		selected := ""
		if d == v.Interval {
			selected = " selected"
		}
		h.printf("<option value=\"%d\"%s>%s</option>\n", d.Milliseconds(), selected, intervalLabel(d.Milliseconds()))
	}
	h.printf("</select>\n</div>\n")
	h.printf("<button class=\"refresh-button\" hx-post=\"/actions/refresh\">&#128260; Refresh</button>\n")
	h.printf("</div>\n")

	h.printf("<div class=\"thumbnails\">\n")
	for i, photo := range v.Photos {
		active := ""
		if i == v.Cursor {
			active = " active"
		}
		h.printf("<button class=\"thumbnail%s\" hx-post=\"%s\">", active, jumpURL(i))
		h.printf("<img src=\"%s\" alt=\"Thumbnail %d\" onerror=\"this.onerror=null;this.src='%s'\">",
			esc(photoFileURL(photo)), i+1, placeholderThumbnailURL)
		h.printf("</button>\n")
	}
	h.printf("</div>\n")

	h.printf("<div class=\"help-text\">Use arrow keys to navigate &bull; Space to play/pause &bull; R to refresh</div>\n")
}

func intervalLabel(ms int64) string {
	switch ms {
	case 2000:
		return "Fast (2s)"
	case 5000:
		return "Normal (5s)"
	case 10000:
		return "Slow (10s)"
	}
	return fmt.Sprintf("%ds", ms/1000)
}
