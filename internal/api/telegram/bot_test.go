package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"surface-tracker/internal/container"
	"surface-tracker/internal/domain/entity"
	"surface-tracker/internal/infrastructure/storage"
	"surface-tracker/internal/infrastructure/vision"
)

// fakeAPI запоминает отправленные сообщения вместо обращения к Telegram.
type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "mem://" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) photos() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			n++
		}
	}
	return n
}

func (f *fakeAPI) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

// redExtractor каждый пиксель с ненулевым красным каналом даёт особую точку.
type redExtractor struct{}

func (redExtractor) Extract(frame entity.Frame, mask []byte) (entity.DescriptorSet, error) {
	var (
		kps   []entity.Keypoint
		descs []entity.Descriptor
	)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			if mask != nil && mask[y*frame.Width+x] == 0 {
				continue
			}
			_, _, r := frame.At(x, y)
			if r == 0 {
				continue
			}
			d := make(entity.Descriptor, 256)
			d[r] = 50
			kps = append(kps, entity.Keypoint{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			descs = append(descs, d)
		}
	}
	return entity.NewDescriptorSet(kps, descs)
}

type passOverlay struct{}

func (passOverlay) DrawRegion(frame entity.Frame, region entity.Region) (entity.Frame, error) {
	return frame, nil
}

var markers = [][2]int{
	{12, 9}, {40, 14}, {71, 8}, {25, 33}, {58, 29}, {90, 37},
	{16, 51}, {47, 60}, {79, 55}, {33, 72}, {66, 75}, {95, 68},
}

func markerPNG(t *testing.T, dx int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for i, m := range markers {
		img.Set(m[0]+dx, m[1], color.RGBA{R: uint8(i + 1), A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type testBot struct {
	bot   *Bot
	api   *fakeAPI
	files map[string][]byte
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	c := container.New(container.Deps{
		Users:     storage.NewMemoryUserRepository(),
		Sessions:  storage.NewMemorySessionRepository(),
		Extractor: redExtractor{},
		Overlay:   passOverlay{},
		Codec:     vision.NewImageCodec(),
		Journal:   storage.NopJournal{},
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	api := &fakeAPI{}
	tb := &testBot{api: api, files: map[string][]byte{}}
	tb.bot = newBot(api, c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tb.bot.fetch = func(ctx context.Context, url string) ([]byte, error) {
		data, ok := tb.files[url]
		if !ok {
			return nil, errors.New("not found")
		}
		return data, nil
	}
	return tb
}

func command(chatID int64, cmd string) *tgbotapi.Message {
	text := "/" + cmd
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: chatID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func (tb *testBot) photo(chatID int64, fileID string, data []byte, caption string) *tgbotapi.Message {
	tb.files["mem://"+fileID] = data
	return &tgbotapi.Message{
		From:    &tgbotapi.User{ID: chatID},
		Chat:    &tgbotapi.Chat{ID: chatID},
		Caption: caption,
		Photo: []tgbotapi.PhotoSize{
			{FileID: fileID + "-small"},
			{FileID: fileID},
		},
	}
}

func TestBot_TrackFlow(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, command(7, "track"))
	require.Equal(t, msgAwaitingReference, tb.api.last())
	user, err := tb.bot.users.Get(ctx, 7, 7)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingReference, user.State)

	tb.bot.handleMessage(ctx, tb.photo(7, "ref", markerPNG(t, 0), ""))
	require.Contains(t, tb.api.last(), "12 особых точек")
	user, err = tb.bot.users.Get(ctx, 7, 7)
	require.NoError(t, err)
	require.Equal(t, entity.StateTracking, user.State)

	info, err := tb.bot.tracking.Info(ctx, entity.ChatSessionID(7))
	require.NoError(t, err)
	require.Equal(t, entity.SessionTracking, info.State)

	tb.bot.handleMessage(ctx, tb.photo(7, "next", markerPNG(t, 6), ""))
	require.Contains(t, tb.api.last(), "Область найдена")
	require.Contains(t, tb.api.last(), "6.0000")
	require.Equal(t, 1, tb.api.photos())

	tb.bot.handleMessage(ctx, command(7, "status"))
	require.Contains(t, tb.api.last(), "особых точек: 12")
}

func TestBot_CaptionSelectsRegion(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, command(8, "track"))
	// левая половина кадра 120×90
	tb.bot.handleMessage(ctx, tb.photo(8, "ref", markerPNG(t, 0), "0,0 0.5,0 0.5,1 0,1"))

	want := 0
	for _, m := range markers {
		if m[0] < 60 {
			want++
		}
	}
	info, err := tb.bot.tracking.Info(ctx, entity.ChatSessionID(8))
	require.NoError(t, err)
	require.Equal(t, want, info.ReferenceFeatures)
}

func TestBot_PhotoWithoutReference(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, tb.photo(9, "p", markerPNG(t, 0), ""))
	require.Equal(t, msgNeedReference, tb.api.last())

	tb.bot.handleMessage(ctx, &tgbotapi.Message{From: &tgbotapi.User{ID: 9}, Chat: &tgbotapi.Chat{ID: 9}, Text: "hi"})
	require.Equal(t, msgSendPhoto, tb.api.last())
}

func TestBot_BadCaptionKeepsAwaiting(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, command(10, "track"))
	tb.bot.handleMessage(ctx, tb.photo(10, "ref", markerPNG(t, 0), "0,0 1,1"))
	require.Contains(t, tb.api.last(), "Не удалось разобрать область")

	user, err := tb.bot.users.Get(ctx, 10, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingReference, user.State)
}

func TestBot_BrokenPhoto(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, command(11, "track"))
	tb.bot.handleMessage(ctx, tb.photo(11, "ref", []byte("not an image"), ""))
	require.Equal(t, msgProcessingError, tb.api.last())
}

func TestBot_CancelAndUnknownCommand(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleMessage(ctx, command(12, "track"))
	tb.bot.handleMessage(ctx, command(12, "cancel"))
	require.Equal(t, msgCancelled, tb.api.last())

	user, err := tb.bot.users.Get(ctx, 12, 12)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	tb.bot.handleMessage(ctx, command(12, "frobnicate"))
	require.Equal(t, msgUnknownCommand, tb.api.last())
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	tb := newTestBot(t)
	ch := make(chan tgbotapi.Update, 1)
	tb.bot.updates = func(ctx context.Context) tgbotapi.UpdatesChannel { return ch }

	ctx, cancel := context.WithCancel(context.Background())
	ch <- tgbotapi.Update{Message: command(13, "help")}

	done := make(chan error, 1)
	go func() { done <- tb.bot.Run(ctx) }()

	require.Eventually(t, func() bool { return tb.api.last() == msgHelp }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestFormatResult_Fallback(t *testing.T) {
	text := formatResult(entity.NoPose(entity.StatusInsufficientMatches))
	require.Contains(t, text, "недостаточно надёжных сопоставлений")
	require.Contains(t, text, "1.0000")
}
