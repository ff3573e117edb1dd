package feedimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/volunthub/internal/model"
)

// feedKind はフィードの種類（RSS/Atom）を表す。
type feedKind string

const (
	feedKindRSS  feedKind = "rss"
	feedKindAtom feedKind = "atom"
)

// feedLink はHTMLページから検出されたフィード候補を表す。
type feedLink struct {
	URL  string
	Kind feedKind
}

// Detector は取込元URLのフィード自動検出を提供する。
// 管理者が団体サイトのトップページURLを登録した場合でも、
// headタグのalternateリンクから実際のフィードURLを解決する。
type Detector struct {
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewDetector はDetectorの新しいインスタンスを生成する。
func NewDetector(ssrfGuard SSRFValidator, timeout time.Duration, maxBodySize int64) *Detector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBodySize <= 0 {
		maxBodySize = 5 * 1024 * 1024
	}
	return &Detector{
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Resolve は入力URLがフィードかHTMLかを判定し、フィードURLを返す。
// フィードそのものであれば入力URLをそのまま返し、HTMLページであれば
// headタグからフィードリンクを検出して最適な候補を返す。
// フィードが見つからない場合はVALIDATION_ERRORを返す。
func (d *Detector) Resolve(ctx context.Context, inputURL string) (string, error) {
	if d.ssrfGuard != nil {
		if err := d.ssrfGuard.ValidateURL(inputURL); err != nil {
			return "", model.NewValidationError(fmt.Sprintf("このURLは登録できません: %s", err.Error()))
		}
	}

	client := d.httpClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inputURL, nil)
	if err != nil {
		return "", model.NewValidationError(fmt.Sprintf("URLの形式が不正です: %s", err.Error()))
	}
	req.Header.Set("User-Agent", "VolunHub/1.0 Feed Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewValidationError(fmt.Sprintf("URLへのアクセスに失敗しました: %s", err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return "", model.NewValidationError(fmt.Sprintf("レスポンスの読み取りに失敗しました: %s", err.Error()))
	}

	contentType := resp.Header.Get("Content-Type")
	if isDirectFeed(contentType, body) {
		return inputURL, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", model.NewValidationError("指定されたURLからフィードを検出できませんでした")
	}

	links := parseFeedLinks(body, inputURL)
	best := selectBestFeedLink(links, inputURL)
	if best == nil {
		return "", model.NewValidationError("指定されたURLからフィードを検出できませんでした")
	}
	return best.URL, nil
}

func (d *Detector) httpClient() *http.Client {
	if d.ssrfGuard != nil {
		return d.ssrfGuard.NewSafeClient(d.timeout, d.maxBodySize)
	}
	return &http.Client{Timeout: d.timeout}
}

// feedContentTypes はフィードとして直接認識するContent-Type。
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
}

// xmlContentTypes は汎用XMLのContent-Type。ボディ解析でフィードかを判定する。
var xmlContentTypes = []string{
	"text/xml",
	"application/xml",
}

// isDirectFeed はContent-Typeとボディから、レスポンスがRSS/Atomフィードかを判定する。
func isDirectFeed(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)

	for _, ct := range feedContentTypes {
		if mediaType == ct {
			return true
		}
	}

	isXML := false
	for _, ct := range xmlContentTypes {
		if mediaType == ct {
			isXML = true
			break
		}
	}
	if !isXML || len(body) == 0 {
		return false
	}

	return looksLikeFeedXML(body)
}

// looksLikeFeedXML はXMLボディの先頭部分からRSS/Atomフィードかを判定する。
func looksLikeFeedXML(body []byte) bool {
	// 先頭4KBにXMLプロローグとルート要素が含まれる前提で検査する
	checkSize := 4096
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(string(body[:checkSize]))

	if strings.Contains(prefix, "<rss") || strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	if strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom") {
		return true
	}
	return false
}

// parseFeedLinks はHTMLのheadタグからrel="alternate"のフィードリンクを検出する。
// 相対URLはbaseURLを基準に絶対URLへ解決する。
func parseFeedLinks(htmlBody []byte, baseURL string) []feedLink {
	var links []feedLink

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return links
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				return links
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}

			var kind feedKind
			switch linkType {
			case "application/rss+xml":
				kind = feedKindRSS
			case "application/atom+xml":
				kind = feedKindAtom
			default:
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			links = append(links, feedLink{
				URL:  baseU.ResolveReference(ref).String(),
				Kind: kind,
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return links
			}
		}
	}
}

// selectBestFeedLink は複数の候補から最適なフィードを選択する。
// 優先順位: 同一ホスト > Atom > 先頭。
func selectBestFeedLink(links []feedLink, inputURL string) *feedLink {
	if len(links) == 0 {
		return nil
	}

	inputHost := hostOf(inputURL)
	bestIdx := 0
	bestScore := -1

	for i, l := range links {
		score := 0
		if hostOf(l.URL) == inputHost {
			score += 100
		}
		if l.Kind == feedKindAtom {
			score += 10
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return &links[bestIdx]
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
