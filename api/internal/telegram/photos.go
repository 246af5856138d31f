package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/image/draw"

	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/service"
	"quiz-gen/api/internal/util"
)

var httpc = &http.Client{Timeout: 60 * time.Second}

// acceptPhoto buffers album pages and processes them together once the album
// stops growing.
func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]
	url, err := r.Bot.GetFileDirectURL(ph.FileID)
	if err != nil {
		r.sendError(cid, "photo download", err)
		return
	}
	img, err := download(url)
	if err != nil {
		r.sendError(cid, "photo download", err)
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}
	bi, _ := batches.LoadOrStore(key, &photoBatch{ChatID: cid, Key: key, images: make([][]byte, 0, 4)})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, img)
	if c := strings.TrimSpace(msg.Caption); c != "" {
		b.Caption = c
	}
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, func() { r.processBatch(key) })
	b.mu.Unlock()

	if first {
		r.send(cid, "Photo received. If the page spans several photos, send them as one album.")
	}
}

func (r *Router) processBatch(key string) {
	bi, ok := batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID, caption := b.ChatID, b.Caption
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}
	r.generate(chatID, images, caption)
}

// generate runs one page (possibly glued from an album) through OCR and the
// question service, then shows the batch.
func (r *Router) generate(chatID int64, images [][]byte, caption string) {
	st := r.state(chatID)
	params, _ := st.snapshot()
	if caption != "" {
		p, err := parseSettings(caption)
		if err != nil {
			r.send(chatID, "❌ Caption not understood: "+err.Error()+"\nExpected: subject difficulty count type")
			return
		}
		params = p
	}

	page := images[0]
	if len(images) > 1 {
		merged, err := combineAsOne(images)
		if err != nil {
			r.sendError(chatID, "album merge", err)
			return
		}
		page = merged
	}

	svc, err := r.service(chatID)
	if err != nil {
		r.sendError(chatID, "engine lookup", err)
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	text, err := r.extractText(ctx, page)
	if err != nil {
		r.sendError(chatID, "text recognition", err)
		return
	}
	qs, err := svc.Generate(ctx, service.GenerateInput{
		TextbookText: text,
		Image:        page,
		MIME:         util.PickMIME("", "", page),
		Params:       params,
	})
	if err != nil {
		r.sendError(chatID, "question generation", err)
		return
	}
	if len(qs) == 0 {
		r.send(chatID, "The model returned no usable questions. Try another photo or /settings.")
		return
	}
	st.setQuestions(qs)
	r.sendQuestions(chatID, qs)
}

func (r *Router) extractText(ctx context.Context, img []byte) (string, error) {
	if r.OCR == nil {
		return "", nil
	}
	return r.OCR.ExtractText(ctx, img)
}

func (r *Router) sendQuestions(chatID int64, qs []question.Question) {
	r.send(chatID, fmt.Sprintf("📝 %d question(s). Reply with /answer N text.", len(qs)))
	for i, q := range qs {
		msg := tgbotapi.NewMessage(chatID, util.Truncate(formatQuestion(i+1, q), 3900))
		if mc, ok := q.(question.MultipleChoiceQuestion); ok {
			msg.ReplyMarkup = choiceKeyboard(i+1, mc)
		}
		if _, err := r.Bot.Send(msg); err != nil {
			r.logger().Warn("telegram send failed", "chat_id", chatID, "error", err)
		}
	}
}

// combineAsOne stacks album pages vertically on a white canvas and re-encodes
// the result as JPEG, scaled down to at most maxPixels.
func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for _, b := range images {
		img, err := decodeImage(b)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, img)
		bounds := img.Bounds()
		if bounds.Dx() > maxW {
			maxW = bounds.Dx()
		}
		sumH += bounds.Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("empty images")
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	final := image.Image(dst)
	if total := maxW * sumH; total > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(total))
		newW := max(1, int(float64(maxW)*scale+0.5))
		newH := max(1, int(float64(sumH)*scale+0.5))
		final = scaleDown(dst, newW, newH)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeImage(b []byte) (image.Image, error) {
	switch util.SniffMimeForOCR(b) {
	case "JPEG":
		return jpeg.Decode(bytes.NewReader(b))
	case "PNG":
		return png.Decode(bytes.NewReader(b))
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

func scaleDown(src image.Image, newW, newH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func download(url string) ([]byte, error) {
	resp, err := httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
