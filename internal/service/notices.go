package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// Notice categories, used as CSS classes by the templates.
const (
	categorySuccess = "success"
	categoryError   = "error"
	categoryWarning = "warning"
)

const (
	noticeCookie = "notices"
	// noticeMaxAge is the lifetime of the notice cookie in seconds. It only has to survive
	// a single redirect.
	noticeMaxAge = 60
	// maxNoticeLength keeps a redirect with several long import errors within the size
	// browsers accept for a cookie.
	maxNoticeLength = 300
)

// notice is a message shown once at the top of the next rendered page.
type notice struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// noticeCodec signs notices so that a client cannot make the application display arbitrary
// text.
type noticeCodec struct {
	key []byte
}

func (n *noticeCodec) encode(notices []notice) string {
	payload, _ := json.Marshal(notices)
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(n.sign(payload))
}

func (n *noticeCodec) decode(value string) []notice {
	encodedPayload, encodedSig, found := strings.Cut(value, ".")
	if !found {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil
	}
	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil || !hmac.Equal(sig, n.sign(payload)) {
		return nil
	}
	var notices []notice
	if err := json.Unmarshal(payload, &notices); err != nil {
		return nil
	}
	return notices
}

func (n *noticeCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, n.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// pendingNotices returns the notices carried over from the previous request.
func (s *Service) pendingNotices(c *gin.Context) []notice {
	value, err := c.Cookie(noticeCookie)
	if err != nil || value == "" {
		return nil
	}
	return s.notices.decode(value)
}

// takeNotices returns the pending notices and clears them.
func (s *Service) takeNotices(c *gin.Context) []notice {
	notices := s.pendingNotices(c)
	if _, err := c.Cookie(noticeCookie); err == nil {
		s.setNoticeCookie(c, "", -1)
	}
	return notices
}

// redirect sends the client to location and shows the notices on the page rendered there.
func (s *Service) redirect(c *gin.Context, location string, notices ...notice) {
	pending := append(s.pendingNotices(c), notices...)
	if len(pending) > 0 {
		for i := range pending {
			pending[i].Message = truncate(pending[i].Message, maxNoticeLength)
		}
		s.setNoticeCookie(c, s.notices.encode(pending), noticeMaxAge)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// render shows an HTML page. Pending notices from a redirect come first, then the given ones.
func (s *Service) render(c *gin.Context, status int, name string, data gin.H, notices ...notice) {
	if data == nil {
		data = gin.H{}
	}
	data["Notices"] = append(s.takeNotices(c), notices...)
	c.HTML(status, name, data)
}

func (s *Service) setNoticeCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(noticeCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "…"
}

func success(msg string) notice { return notice{Category: categorySuccess, Message: msg} }
func failure(msg string) notice { return notice{Category: categoryError, Message: msg} }
func warning(msg string) notice { return notice{Category: categoryWarning, Message: msg} }
