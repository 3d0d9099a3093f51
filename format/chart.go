// ABOUTME: Chart download action: decodes a chart data URI into a timestamped PNG attachment.
// ABOUTME: Shared by the web chart endpoint and any caller that materializes charts outside a browser.
package format

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotDataURI is returned when a chart reference is not a base64 data URI.
var ErrNotDataURI = errors.New("chart reference is not a base64 data URI")

// Download is a materialized chart ready to hand to the user.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// DownloadFilename returns the attachment name for a chart saved at now.
func DownloadFilename(now time.Time) string {
	return fmt.Sprintf("Report_%d.png", now.UnixMilli())
}

// DownloadChart decodes dataURI and names it after the current timestamp.
// The filename always carries a .png extension regardless of image subtype.
func DownloadChart(dataURI string, now time.Time) (Download, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return Download{}, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Download{}, ErrNotDataURI
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(contentType, "image/") {
		return Download{}, ErrNotDataURI
	}

	payload = strings.Join(strings.Fields(payload), "")
	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		body, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Download{}, fmt.Errorf("decoding chart payload: %w", err)
		}
	}

	return Download{
		Filename:    DownloadFilename(now),
		ContentType: contentType,
		Body:        body,
	}, nil
}
