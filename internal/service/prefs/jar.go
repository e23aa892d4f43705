package prefs

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

const cookieKeyPrefix = "cookies:"

// storedCookie is the persisted subset of a cookie; a jar only hands back
// name and value, so that is all that can be restored.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Jar is an http.CookieJar that writes every change for a host through to
// local storage, so a session survives restarts of the client.
type Jar struct {
	mu     sync.Mutex
	kv     KV
	inner  *cookiejar.Jar
	loaded map[string]bool
}

// NewJar returns a persistent jar over kv.
func NewJar(kv KV) (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Jar{kv: kv, inner: inner, loaded: make(map[string]bool)}, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.restoreLocked(u)
	j.inner.SetCookies(u, cookies)
	j.persistLocked(u)
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.restoreLocked(u)
	return j.inner.Cookies(u)
}

// Clear forgets every cookie stored for u's host.
func (j *Jar) Clear(u *url.URL) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.restoreLocked(u)
	expired := make([]*http.Cookie, 0)
	for _, c := range j.inner.Cookies(u) {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: "/", MaxAge: -1})
	}
	j.inner.SetCookies(u, expired)
	return j.kv.Delete(cookieKeyPrefix + u.Host)
}

func (j *Jar) restoreLocked(u *url.URL) {
	if j.loaded[u.Host] {
		return
	}
	j.loaded[u.Host] = true

	raw, ok, err := j.kv.Get(cookieKeyPrefix + u.Host)
	if err != nil {
		log.Warn().Err(err).Str("host", u.Host).Msg("[prefs] load cookies failed")
		return
	}
	if !ok {
		return
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn().Err(err).Str("host", u.Host).Msg("[prefs] decode cookies failed")
		return
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	j.inner.SetCookies(u, cookies)
}

func (j *Jar) persistLocked(u *url.URL) {
	current := j.inner.Cookies(u)
	if len(current) == 0 {
		if err := j.kv.Delete(cookieKeyPrefix + u.Host); err != nil {
			log.Warn().Err(err).Str("host", u.Host).Msg("[prefs] drop cookies failed")
		}
		return
	}

	stored := make([]storedCookie, 0, len(current))
	for _, c := range current {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		log.Warn().Err(err).Msg("[prefs] encode cookies failed")
		return
	}
	if err := j.kv.Set(cookieKeyPrefix+u.Host, string(data)); err != nil {
		log.Warn().Err(err).Str("host", u.Host).Msg("[prefs] save cookies failed")
	}
}
