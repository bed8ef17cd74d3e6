package loader

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultScriptPath = "/apps/fueled/client.js"

// ScriptURL builds the tracking script URL with its page marker and cache
// buster, e.g. /apps/fueled/client.js?page=custom_pixel&rand=1.
func ScriptURL(path, cacheBuster string) string {
	if path == "" {
		path = DefaultScriptPath
	}
	query := "page=custom_pixel&rand=" + url.QueryEscape(cacheBuster)
	if strings.Contains(path, "?") {
		return path + "&" + query
	}
	return path + "?" + query
}

func NewCacheBuster() string {
	return uuid.NewString()
}

type Script struct {
	ID         string    `json:"id"`
	Src        string    `json:"src"`
	Async      bool      `json:"async"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Document is an in-memory page head. Each LoadScript call appends exactly
// one script element.
type Document struct {
	mu   sync.Mutex
	head []Script
	now  func() time.Time
}

func NewDocument() *Document {
	return &Document{now: time.Now}
}

func (d *Document) LoadScript(src string) {
	script := Script{
		ID:         uuid.NewString(),
		Src:        src,
		Async:      true,
		InsertedAt: d.now().UTC(),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.head = append(d.head, script)
}

// Scripts returns a copy of the injected scripts in insertion order.
func (d *Document) Scripts() []Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Script, len(d.head))
	copy(out, d.head)
	return out
}
