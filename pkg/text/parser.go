// Package text provides play-request parsing and URL classification for
// Discord commands.
package text

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RequestType classifies what a play request refers to.
type RequestType int

const (
	// RequestFreeText is a plain search query.
	RequestFreeText RequestType = iota
	// RequestYouTubeLink is a direct link to a YouTube video.
	RequestYouTubeLink
	// RequestProviderLink is a link to another music provider that must be
	// converted to a search before playback.
	RequestProviderLink
)

// Request is a parsed play request.
type Request struct {
	Type RequestType
	Text string
	URLs []string
}

var (
	urlRegex   = regexp.MustCompile(`https?://\S+`)
	spaceRegex = regexp.MustCompile(`\s+`)

	youtubeDomains = map[string]bool{
		"youtube.com":       true,
		"youtu.be":          true,
		"music.youtube.com": true,
	}

	providerDomains = map[string]bool{
		"open.spotify.com": true,
		"spotify.com":      true,
		"music.apple.com":  true,
		"soundcloud.com":   true,
		"bandcamp.com":     true,
		"deezer.com":       true,
	}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseRequest normalizes the input and classifies it by the links it
// carries. A request with no recognized music link is a search query.
func (p *Parser) ParseRequest(text string) Request {
	text = p.normalizeText(text)
	urls := p.extractURLs(text)

	return Request{
		Type: p.classifyRequest(urls),
		Text: text,
		URLs: urls,
	}
}

func (p *Parser) normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = norm.NFKC.String(text)
	text = spaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	var normalizedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			normalizedLines = append(normalizedLines, line)
		}
	}

	return strings.Join(normalizedLines, " ")
}

func (p *Parser) extractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	var cleanURLs []string

	for _, match := range matches {
		cleanURL := p.cleanURL(match)
		if cleanURL != "" {
			cleanURLs = append(cleanURLs, cleanURL)
		}
	}

	return cleanURLs
}

func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;>")

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	q := u.Query()

	utmParams := []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}
	for _, param := range utmParams {
		q.Del(param)
	}

	q.Del("si")

	u.RawQuery = q.Encode()

	return u.String()
}

func (p *Parser) classifyRequest(urls []string) RequestType {
	for _, u := range urls {
		if IsYouTubeURL(u) {
			return RequestYouTubeLink
		}
	}

	for _, u := range urls {
		if p.isProviderURL(u) {
			return RequestProviderLink
		}
	}

	return RequestFreeText
}

// IsYouTubeURL reports whether the URL points at a YouTube video.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return youtubeDomains[canonicalHost(u)]
}

func (p *Parser) isProviderURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return providerDomains[canonicalHost(u)]
}

func canonicalHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())

	hostname = strings.TrimPrefix(hostname, "www.")
	if hostname == "m.youtube.com" {
		hostname = "youtube.com"
	}

	return hostname
}

// ExtractVideoID pulls the video ID out of a YouTube watch, share or shorts
// URL.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	switch canonicalHost(u) {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if id == "" {
			return "", errors.New("missing video ID in short URL")
		}
		return id, nil

	case "youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		if strings.HasPrefix(u.Path, "/shorts/") {
			id := strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
			if id != "" {
				return id, nil
			}
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			id := strings.Trim(strings.TrimPrefix(u.Path, "/embed/"), "/")
			if id != "" {
				return id, nil
			}
		}
		return "", errors.New("missing video ID in URL")

	default:
		return "", errors.New("not a YouTube URL")
	}
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL builds the standard thumbnail URL for a video ID.
func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
