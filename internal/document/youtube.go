package document

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	reYouTube       = regexp.MustCompile(`(?:youtube\.com\/(?:[^\/]+\/.+\/|(?:v|e(?:mbed)?)\/|.*[?&]v=)|youtu\.be\/)([^"&?\/\s]{11})`)
	reXMLTranscript = regexp.MustCompile(`<text start="([^"]*)" dur="([^"]*)">([^<]*)<\/text>`)
	reVideoID       = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	reTitle         = regexp.MustCompile(`<title>(.+?) - YouTube</title>`)
)

// Transcripts fetches YouTube caption tracks and turns them into pages.
type Transcripts struct {
	client   *http.Client
	watchURL string // fmt pattern taking the video id
	lang     string
}

// NewTranscripts returns a transcript fetcher. An empty lang picks the
// first caption track of the video.
func NewTranscripts(client *http.Client, lang string) *Transcripts {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transcripts{
		client:   client,
		watchURL: "https://www.youtube.com/watch?v=%s",
		lang:     lang,
	}
}

// Fetch downloads the transcript of the video at url (or bare video id) and
// returns it as a single page titled after the video.
func (t *Transcripts) Fetch(ctx context.Context, url string) (Page, error) {
	videoID, err := VideoID(url)
	if err != nil {
		return Page{}, err
	}

	body, err := t.get(ctx, fmt.Sprintf(t.watchURL, videoID))
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch video page: %w", err)
	}

	source := "youtube:" + videoID
	if m := reTitle.FindStringSubmatch(body); len(m) > 1 {
		source = html.UnescapeString(m[1])
	}

	trackURL, err := t.captionTrack(videoID, body)
	if err != nil {
		return Page{}, err
	}

	xml, err := t.get(ctx, trackURL)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch transcript: %w", err)
	}

	var text strings.Builder
	for _, m := range reXMLTranscript.FindAllStringSubmatch(xml, -1) {
		line := strings.TrimSpace(html.UnescapeString(m[3]))
		if line == "" {
			continue
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	if text.Len() == 0 {
		return Page{}, fmt.Errorf("%w: transcript of video %s is empty", ErrNoText, videoID)
	}
	return Page{Source: source, Number: 1, Content: text.String()}, nil
}

func (t *Transcripts) captionTrack(videoID, body string) (string, error) {
	parts := strings.SplitN(body, `"captions":`, 2)
	if len(parts) < 2 {
		log.Printf("DEBUG: No captions marker in video page for %s", videoID)
		return "", fmt.Errorf("no captions available for video %s", videoID)
	}
	end := strings.Index(parts[1], `,"videoDetails`)
	if end < 0 {
		return "", fmt.Errorf("malformed captions data for video %s", videoID)
	}

	var captions struct {
		Renderer struct {
			Tracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	}
	if err := json.Unmarshal([]byte(parts[1][:end]), &captions); err != nil {
		return "", fmt.Errorf("failed to parse captions data: %w", err)
	}

	tracks := captions.Renderer.Tracks
	if len(tracks) == 0 {
		return "", fmt.Errorf("no transcripts available for video %s", videoID)
	}
	if t.lang == "" {
		return tracks[0].BaseURL, nil
	}
	for _, track := range tracks {
		if track.LanguageCode == t.lang {
			return track.BaseURL, nil
		}
	}
	return "", fmt.Errorf("no transcript available in language %s", t.lang)
}

func (t *Transcripts) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VideoID extracts the 11 character video id from a YouTube URL or returns
// the input if it already is an id.
func VideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if reVideoID.MatchString(url) {
		return url, nil
	}
	if m := reYouTube.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("invalid YouTube URL or video ID: %q", url)
}
