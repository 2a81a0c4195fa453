package video

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/at-ishikawa/lectio/internal/apperr"
)

var sourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseSourceID extracts the platform video identifier from a URL or a bare id.
// Watch URLs, youtu.be short links and /embed/, /shorts/, /live/, /v/ paths are accepted.
func ParseSourceID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalidSource(raw, "empty source")
	}
	if sourceIDPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", invalidSource(raw, err.Error())
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) >= 2 && isIDPathPrefix(segments[0]):
			id = segments[1]
		}
	default:
		return "", invalidSource(raw, fmt.Sprintf("unsupported host %q", host))
	}

	if !sourceIDPattern.MatchString(id) {
		return "", invalidSource(raw, "no video id found")
	}
	return id, nil
}

func isIDPathPrefix(segment string) bool {
	switch segment {
	case "embed", "shorts", "live", "v":
		return true
	}
	return false
}

func invalidSource(raw, reason string) error {
	return apperr.Validation(ErrInvalidSource.Code, "invalid video source %q: %s", raw, reason)
}
