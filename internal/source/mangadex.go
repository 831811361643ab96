package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mangashelf/pkg/models"
)

// MangaDex API base (public)
const mangadexBase = "https://api.mangadex.org"

// MangaDex fetches chapter listings from the MangaDex chapter feed.
// Entry.URL holds the MangaDex manga UUID.
type MangaDex struct {
	Client *http.Client
	Limit  int    // items per request
	Max    int    // maximum chapters to fetch total (safety)
	Lang   string // translatedLanguage filter
}

func NewMangaDex() *MangaDex {
	return &MangaDex{
		Client: &http.Client{Timeout: 12 * time.Second},
		Limit:  100,
		Max:    2000,
		Lang:   "en",
	}
}

func (s *MangaDex) Name() string { return "mangadex" }

type mdFeedResponse struct {
	Result string `json:"result"`
	Data   []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title              string `json:"title"`
			Volume             string `json:"volume"`
			Chapter            string `json:"chapter"`
			TranslatedLanguage string `json:"translatedLanguage"`
			PublishAt          string `json:"publishAt"`
			Pages              int    `json:"pages"`
		} `json:"attributes"`
		Relationships []struct {
			Type       string `json:"type"`
			Attributes struct {
				Name string `json:"name"` // scanlation_group
			} `json:"attributes"`
		} `json:"relationships"`
	} `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

func (s *MangaDex) FetchChapterList(ctx context.Context, entry models.Entry) ([]models.RawChapter, error) {
	var all []models.RawChapter

	offset := 0
	for len(all) < s.Max {
		u, _ := url.Parse(mangadexBase + "/manga/" + entry.URL + "/feed")
		q := u.Query()
		q.Set("limit", fmt.Sprintf("%d", s.Limit))
		q.Set("offset", fmt.Sprintf("%d", offset))
		q.Add("translatedLanguage[]", s.Lang)
		q.Add("includes[]", "scanlation_group")

		// most recent first, which the synchronizer relies on
		q.Set("order[volume]", "desc")
		q.Set("order[chapter]", "desc")

		q.Add("contentRating[]", "safe")
		q.Add("contentRating[]", "suggestive")
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("mangadex: build request: %w", err)
		}

		resp, err := s.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("mangadex: request: %w", err)
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("mangadex: status %d: %s", resp.StatusCode, string(body))
		}

		var feed mdFeedResponse
		if err := json.Unmarshal(body, &feed); err != nil {
			return nil, fmt.Errorf("mangadex: decode: %w", err)
		}

		if len(feed.Data) == 0 {
			break
		}

		for _, item := range feed.Data {
			if item.ID == "" {
				continue
			}

			scanlator := ""
			for _, rel := range item.Relationships {
				if rel.Type == "scanlation_group" && rel.Attributes.Name != "" {
					scanlator = rel.Attributes.Name
					break
				}
			}

			var uploaded int64
			if t, err := time.Parse(time.RFC3339, item.Attributes.PublishAt); err == nil {
				uploaded = t.UnixMilli()
			}

			raw := models.NewRawChapter() // recognition fills the number in
			raw.URL = "/chapter/" + item.ID
			raw.Name = chapterDisplayName(item.Attributes.Volume, item.Attributes.Chapter, item.Attributes.Title)
			raw.Scanlator = scanlator
			raw.DateUpload = uploaded
			all = append(all, raw)
			if len(all) >= s.Max {
				break
			}
		}

		offset += s.Limit
		if offset >= feed.Total {
			break
		}
	}

	return all, nil
}

// RefreshChapter pins the chapter number from the structured "Ch.xx" part of
// the display name, so recognition doesn't have to guess it back out of the
// free text.
func (s *MangaDex) RefreshChapter(raw *models.RawChapter, _ models.Entry) {
	if raw.ChapterNumber > -1 {
		return
	}
	const marker = "Ch."
	idx := strings.Index(raw.Name, marker)
	if idx < 0 {
		return
	}
	rest := raw.Name[idx+len(marker):]
	if cut := strings.IndexAny(rest, " -:"); cut >= 0 {
		rest = rest[:cut]
	}
	if n, err := strconv.ParseFloat(rest, 64); err == nil && n >= 0 {
		raw.ChapterNumber = n
	}
}

func chapterDisplayName(volume, chapter, title string) string {
	var b strings.Builder
	if volume != "" {
		fmt.Fprintf(&b, "Vol.%s ", volume)
	}
	if chapter != "" {
		fmt.Fprintf(&b, "Ch.%s", chapter)
	} else {
		b.WriteString("Oneshot")
	}
	if title != "" {
		fmt.Fprintf(&b, " - %s", title)
	}
	return b.String()
}
