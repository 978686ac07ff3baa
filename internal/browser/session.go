package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Cookie is the persisted form of a cookie. Its json keys follow the format
// browser cookie export extensions produce so such exports can be imported
// as is.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expirationDate,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HttpOnly bool    `json:"httpOnly,omitempty"`
}

func (c Cookie) http() *http.Cookie {
	out := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if out.Path == "" {
		out.Path = "/"
	}
	if c.Expires > 0 {
		out.Expires = time.Unix(int64(c.Expires), 0)
	}
	return out
}

// Session is what survives between runs: cookies and local storage.
type Session struct {
	SavedAt      time.Time         `json:"saved_at"`
	Cookies      []Cookie          `json:"cookies"`
	LocalStorage map[string]string `json:"local_storage"`
}

// Session snapshots the client's current session.
func (c *Client) Session() Session {
	var cookies []Cookie
	for _, cookie := range c.Cookies() {
		cookies = append(cookies, Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: c.baseUrl.Hostname(),
			Path:   "/",
		})
	}
	return Session{
		SavedAt:      time.Now(),
		Cookies:      cookies,
		LocalStorage: c.Storage(),
	}
}

// ApplySession loads the cookies and local storage of s into the client.
func (c *Client) ApplySession(s Session) {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, cookie := range s.Cookies {
		cookies = append(cookies, cookie.http())
	}
	c.SetCookies(cookies)
	for k, v := range s.LocalStorage {
		c.SetStorage(k, v)
	}
}

func backupPath(path string) string {
	return path + ".backup"
}

// WriteSession writes s to path, an existing file is first moved to
// <path>.backup.
func WriteSession(path string, s Session) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		err = os.Rename(path, backupPath(path))
		if err != nil {
			return fmt.Errorf("backup session: %w", err)
		}
	}

	serialized, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, serialized, 0600)
}

// ReadSession reads the session at path, returning os.ErrNotExist when there
// is none.
func ReadSession(path string) (Session, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var s Session
	err = json.Unmarshal(contents, &s)
	if err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

// SaveSession persists the client's session to path.
func (c *Client) SaveSession(path string) error {
	return WriteSession(path, c.Session())
}

// RestoreSession applies the session saved at path, a missing file is not an
// error and reports false.
func (c *Client) RestoreSession(path string) (bool, error) {
	s, err := ReadSession(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.ApplySession(s)
	return true, nil
}

// ImportCookies converts a cookie export (a json array of cookies, as written
// by browser cookie export extensions) into a session file at dst.
func ImportCookies(src, dst string) (Session, error) {
	contents, err := os.ReadFile(src)
	if err != nil {
		return Session{}, err
	}
	var cookies []Cookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		return Session{}, fmt.Errorf("parse cookie export %s: %w", src, err)
	}
	if len(cookies) == 0 {
		return Session{}, fmt.Errorf("cookie export %s contains no cookies", src)
	}

	s := Session{
		SavedAt:      time.Now(),
		Cookies:      cookies,
		LocalStorage: map[string]string{},
	}
	return s, WriteSession(dst, s)
}
