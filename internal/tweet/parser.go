// Package tweet parses claim tweets: the post id from its URL, and the
// payout address and project mention from its text.
package tweet

import (
	"net/url"
	"regexp"
	"strings"

	faucetErrors "github.com/faucet-intake/internal/errors"
	"github.com/faucet-intake/internal/types"
)

var (
	addressRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]{40}`)
	digitsRegex  = regexp.MustCompile(`^[0-9]+$`)
)

// postHosts are the hosts tweet links are served from
var postHosts = map[string]bool{
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
}

// ExtractPostID returns the numeric post id from a tweet URL such as
// https://twitter.com/JohBa/status/1008271083080994817.
func ExtractPostID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", faucetErrors.NewInvalidURLError(rawURL)
	}
	if !postHosts[strings.ToLower(u.Hostname())] {
		return "", faucetErrors.NewInvalidURLError(rawURL)
	}

	segments := pathSegments(u.Path)
	if len(segments) == 0 {
		return "", faucetErrors.NewInvalidURLError(rawURL)
	}

	// Prefer the segment after "status", fall back to the last one
	id := segments[len(segments)-1]
	for i, segment := range segments[:len(segments)-1] {
		if segment == "status" || segment == "statuses" {
			id = segments[i+1]
			break
		}
	}

	if !digitsRegex.MatchString(id) {
		return "", faucetErrors.NewUnparsablePostIDError(rawURL, id)
	}
	return id, nil
}

func pathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// ExtractAddress returns the first address-shaped substring of text.
// Only the format is matched here, callers still run full validation.
func ExtractAddress(text string) (string, error) {
	for _, loc := range addressRegex.FindAllStringIndex(text, -1) {
		if endsAddress(text, loc[1]) {
			return text[loc[0]:loc[1]], nil
		}
	}
	return "", faucetErrors.NewNoAddressFoundError()
}

// endsAddress reports whether the 40 hex digits ending at end close an
// address. A longer hex run is not an address, but a run followed directly
// by another 0x token is.
func endsAddress(text string, end int) bool {
	rest := text[end:]
	if rest == "" || !isHexDigit(rest[0]) {
		return true
	}
	return len(rest) >= 2 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X')
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Mentions reports whether text references @handle, ignoring case.
// The handle must end on a word boundary, so @leapdaofan is not @leapdao.
func Mentions(text, handle string) bool {
	handle = strings.TrimPrefix(handle, "@")
	if handle == "" {
		return false
	}
	return mentionRegex(handle).MatchString(text)
}

func mentionRegex(handle string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\w@])@` + regexp.QuoteMeta(handle) + `(?:$|\W)`)
}

// CheckMention fails with a NoMention error when text does not reference @handle
func CheckMention(text, handle string) error {
	if !Mentions(text, handle) {
		return faucetErrors.NewNoMentionError(strings.TrimPrefix(handle, "@"))
	}
	return nil
}

// ParseMention extracts the payout address and mention flag from a post body.
// It only fails when no address is present; the mention policy is left to the caller.
func ParseMention(text, handle string) (*types.ParsedMention, error) {
	address, err := ExtractAddress(text)
	if err != nil {
		return nil, err
	}
	return &types.ParsedMention{
		Address:        address,
		MentionsTarget: Mentions(text, handle),
	}, nil
}
