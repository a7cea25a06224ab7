package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asticode/go-astilog"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/smiledesk/go-handsfree"
	"github.com/smiledesk/go-handsfree/surface"
)

// Default options
const (
	DefaultHighlightClass    = "handsfree-selected"
	DefaultNotificationEvent = "handsfree:notification"
	DefaultRegionAttribute   = "data-region"
	DefaultTimeout           = 5 * time.Second
)

const refAttribute = "data-handsfree-ref"

// Options represents browser options
type Options struct {
	ExecPath          string `toml:"exec_path"`
	Headless          bool   `toml:"headless"`
	HighlightClass    string `toml:"highlight_class"`
	NotificationEvent string `toml:"notification_event"`
	RegionAttribute   string `toml:"region_attribute"`
	// In seconds
	Timeout int    `toml:"timeout"`
	URL     string `toml:"url"`
}

func (o *Options) defaults() {
	if o.HighlightClass == "" {
		o.HighlightClass = DefaultHighlightClass
	}
	if o.NotificationEvent == "" {
		o.NotificationEvent = DefaultNotificationEvent
	}
	if o.RegionAttribute == "" {
		o.RegionAttribute = DefaultRegionAttribute
	}
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(o.Timeout) * time.Second
}

// Browser drives a kiosk Chrome tab rendering the host application. It implements
// surface.Provider, surface.Router and surface.Notifier.
type Browser struct {
	cancels    []context.CancelFunc
	ctx        context.Context
	loading    string
	m          sync.Mutex // Locks loading and onNavigate
	o          Options
	onNavigate []func()
}

// New creates a new browser
func New(o Options) *Browser {
	o.defaults()
	return &Browser{o: o}
}

// OnNavigate adds a callback executed every time the tab has loaded a new document or
// has changed its history within the document
func (b *Browser) OnNavigate(fn func()) {
	b.m.Lock()
	defer b.m.Unlock()
	b.onNavigate = append(b.onNavigate, fn)
}

// Start launches chrome and opens the application url
func (b *Browser) Start(ctx context.Context) (err error) {
	// Create allocator
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", b.o.Headless),
		chromedp.Flag("kiosk", !b.o.Headless),
		chromedp.Flag("use-fake-ui-for-media-stream", true),
	)
	if b.o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.o.ExecPath))
	}
	actx, acancel := chromedp.NewExecAllocator(ctx, opts...)

	// Create tab
	var cancel context.CancelFunc
	b.ctx, cancel = chromedp.NewContext(actx, chromedp.WithLogf(astilog.Debugf), chromedp.WithErrorf(astilog.Errorf))
	b.cancels = []context.CancelFunc{cancel, acancel}

	// Listen to navigations
	chromedp.ListenTarget(b.ctx, b.handleEvent)

	// Open url
	astilog.Debugf("browser: opening %s", b.o.URL)
	if err = chromedp.Run(b.ctx, chromedp.Navigate(b.o.URL)); err != nil {
		b.Close()
		err = errors.Wrapf(err, "browser: opening %s failed", b.o.URL)
		return
	}
	return
}

// Close closes the tab and chrome
func (b *Browser) Close() {
	for _, fn := range b.cancels {
		fn()
	}
	b.cancels = nil
}

// handleEvent tracks navigations of the main frame. Documents are only reported once
// loaded so that their elements can be listed.
func (b *Browser) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame.ParentID == "" {
			b.m.Lock()
			b.loading = ev.Frame.URL
			b.m.Unlock()
		}
	case *page.EventLoadEventFired:
		b.m.Lock()
		url := b.loading
		b.loading = ""
		b.m.Unlock()
		if url != "" {
			b.navigated(url)
		}
	case *page.EventNavigatedWithinDocument:
		b.navigated(ev.URL)
	}
}

func (b *Browser) navigated(url string) {
	// Log
	astilog.Debugf("browser: navigated to %s", url)

	// Get callbacks
	b.m.Lock()
	fns := append([]func(){}, b.onNavigate...)
	b.m.Unlock()

	// Execute callbacks outside of the target listener
	go func() {
		for _, fn := range fns {
			fn()
		}
	}()
}

func (b *Browser) run(as ...chromedp.Action) (err error) {
	// Not started
	if b.ctx == nil {
		err = handsfree.ErrNotRunning
		return
	}

	// Run
	ctx, cancel := context.WithTimeout(b.ctx, b.o.timeout())
	defer cancel()
	return chromedp.Run(ctx, as...)
}

func byValue(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true)
}

// ListActionable implements the surface.Provider interface
func (b *Browser) ListActionable(excluded ...surface.Region) (es []surface.Element, err error) {
	// Build script
	var s string
	if s, err = listScript(b.o.RegionAttribute, excluded); err != nil {
		err = errors.Wrap(err, "browser: building list script failed")
		return
	}

	// Evaluate once the document is ready
	if err = b.run(chromedp.WaitReady("body", chromedp.ByQuery), chromedp.Evaluate(s, &es, byValue)); err != nil {
		err = errors.Wrap(err, "browser: listing actionable elements failed")
		return
	}
	return
}

// Activate implements the surface.Provider interface
func (b *Browser) Activate(e surface.Element) (err error) {
	// Click
	var ok bool
	if err = b.run(chromedp.Evaluate(activateScript(e.Ref), &ok, byValue)); err != nil {
		err = errors.Wrapf(err, "browser: clicking %s failed", e.Ref)
		return
	}

	// Element is gone
	if !ok {
		err = errors.Errorf("browser: element %s not found", e.Ref)
		return
	}
	return
}

// Highlight implements the surface.Provider interface
func (b *Browser) Highlight(e surface.Element, selected bool) (err error) {
	// Toggle class
	var ok bool
	if err = b.run(chromedp.Evaluate(highlightScript(e.Ref, b.o.HighlightClass, selected), &ok, byValue)); err != nil {
		err = errors.Wrapf(err, "browser: highlighting %s failed", e.Ref)
		return
	}

	// Element is gone
	if !ok {
		err = errors.Errorf("browser: element %s not found", e.Ref)
		return
	}
	return
}

// Navigate implements the surface.Router interface
func (b *Browser) Navigate(path string) (err error) {
	// Build url
	u := strings.TrimSuffix(b.o.URL, "/") + "/" + strings.TrimPrefix(path, "/")

	// Navigate
	astilog.Debugf("browser: navigating to %s", u)
	if err = b.run(chromedp.Navigate(u)); err != nil {
		err = errors.Wrapf(err, "browser: navigating to %s failed", u)
		return
	}
	return
}

// Notify implements the surface.Notifier interface
func (b *Browser) Notify(n surface.Notification) {
	// Build script
	s, err := notifyScript(b.o.NotificationEvent, n)
	if err != nil {
		astilog.Error(errors.Wrap(err, "browser: building notify script failed"))
		return
	}

	// Dispatch
	var ok bool
	if err = b.run(chromedp.Evaluate(s, &ok, byValue)); err != nil {
		astilog.Error(errors.Wrap(err, "browser: dispatching notification failed"))
	}
}

func refSelector(ref string) string {
	return fmt.Sprintf(`[%s=%s]`, refAttribute, quote(ref))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func listScript(regionAttribute string, excluded []surface.Region) (s string, err error) {
	// Build excluded region selectors
	ss := []string{}
	for _, r := range excluded {
		ss = append(ss, fmt.Sprintf(`[%s=%s]`, regionAttribute, quote(string(r))))
	}

	// Marshal
	var b []byte
	if b, err = json.Marshal(ss); err != nil {
		err = errors.Wrap(err, "browser: marshaling failed")
		return
	}

	// Build script
	s = fmt.Sprintf(`(() => {
	const excluded = %s;
	const es = [];
	let n = window.__handsfreeRefs || 0;
	document.querySelectorAll('a, button, [role="button"], [role="link"]').forEach((el) => {
		if (excluded.some((s) => el.closest(s) !== null)) return;
		if (!el.hasAttribute(%s)) el.setAttribute(%s, 'hf-' + (++n));
		const role = el.getAttribute('role');
		let kind = el.tagName === 'A' ? %s : %s;
		if (role === 'button' && el.tagName !== 'BUTTON') kind = %s;
		if (role === 'link' && el.tagName !== 'A') kind = %s;
		es.push({
			class: el.getAttribute('class') || '',
			id: el.id || '',
			kind: kind,
			label: el.getAttribute('aria-label') || '',
			position: es.length + 1,
			ref: el.getAttribute(%s),
			text: (el.innerText || el.textContent || '').trim(),
		});
	});
	window.__handsfreeRefs = n;
	return es;
})()`, b, quote(refAttribute), quote(refAttribute), quote(surface.AnchorKind), quote(surface.ButtonKind),
		quote(surface.RoleButtonKind), quote(surface.RoleLinkKind), quote(refAttribute))
	return
}

func activateScript(ref string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (el === null) return false;
	el.click();
	return true;
})()`, quote(refSelector(ref)))
}

func highlightScript(ref, class string, selected bool) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (el === null) return false;
	el.classList.toggle(%s, %t);
	if (%t) el.scrollIntoView({block: 'nearest'});
	return true;
})()`, quote(refSelector(ref)), quote(class), selected, selected)
}

func notifyScript(event string, n surface.Notification) (s string, err error) {
	// Marshal
	var b []byte
	if b, err = json.Marshal(n); err != nil {
		err = errors.Wrap(err, "browser: marshaling failed")
		return
	}

	// Build script
	s = fmt.Sprintf(`window.dispatchEvent(new CustomEvent(%s, {detail: %s}))`, quote(event), b)
	return
}
