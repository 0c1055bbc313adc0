// Package youtube extracts video ids from the URL shapes users paste.
package youtube

import (
	"errors"
	"regexp"
)

// ErrInvalidURL means no 11-character video id could be found.
var ErrInvalidURL = errors.New("invalid youtube url")

var videoIDPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?|shorts)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID returns the video id in watch, short-link, embed and shorts URLs.
func ExtractVideoID(rawURL string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(rawURL)
	if len(match) < 2 {
		return "", ErrInvalidURL
	}
	return match[1], nil
}

// CanonicalURL rewrites any accepted form to the watch URL.
func CanonicalURL(rawURL string) (string, error) {
	id, err := ExtractVideoID(rawURL)
	if err != nil {
		return "", err
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}
