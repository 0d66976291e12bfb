// depth-replay streams depth frames to a running depthguard over the
// frame ingest websocket. Frames are synthesized (an obstacle approaching
// and receding) or read from a recording of concatenated binary frames.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-depthguard/internal/httpc"
	"github.com/teslashibe/go-depthguard/internal/log"
	"github.com/teslashibe/go-depthguard/pkg/depth"
	"github.com/teslashibe/go-depthguard/pkg/protocol"
)

func main() {
	server := flag.String("server", "ws://localhost:8080/ws/frames", "depthguard frame ingest URL")
	fps := flag.Float64("fps", 15, "Frames per second")
	period := flag.Duration("period", 10*time.Second, "Approach/recede cycle length for synthetic frames")
	minDist := flag.Float64("min", 0.15, "Closest synthetic distance in meters")
	maxDist := flag.Float64("max", 2.5, "Farthest synthetic distance in meters")
	file := flag.String("file", "", "Replay a recording instead of synthesizing frames")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	noDepth := flag.Bool("no-depth", false, "Announce a device without smoothed depth")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*level, "")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		var c context.CancelFunc
		ctx, c = context.WithTimeout(ctx, *duration)
		defer c()
	}

	var src frameSource
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Error("open recording", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		src = newRecording(bufio.NewReader(f))
	} else {
		src = newSynthetic(depth.DefaultWidth, depth.DefaultHeight, depth.DefaultRegion(), *period, *minDist, *maxDist)
	}

	if err := run(ctx, *server, src, *fps, !*noDepth); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}

	printStatus(*server)
}

type frameSource interface {
	Next(t time.Duration) (*depth.Frame, error)
	Size() (width, height int)
}

func run(ctx context.Context, server string, src frameSource, fps float64, smoothed bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", server, err)
	}
	defer conn.Close()

	w, h := src.Size()
	hello, err := protocol.NewHelloMessage("depth-replay", smoothed, w, h)
	if err != nil {
		return err
	}
	data, err := hello.Bytes()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	log.Info("connected", "server", server, "width", w, "height", h)

	readErr := make(chan error, 1)
	go func() { readErr <- readReplies(conn) }()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			f, err := src.Next(time.Since(start))
			if errors.Is(err, io.EOF) {
				log.Info("recording finished")
				return nil
			}
			if err != nil {
				return err
			}
			f.Timestamp = time.Now()
			if err := conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeFrame(f)); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
		}
	}
}

// readReplies logs server messages. A fatal error ends the replay.
func readReplies(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("unparseable reply", "error", err)
			continue
		}
		if msg.Type != protocol.TypeError {
			log.Debug("reply", "type", msg.Type)
			continue
		}
		var e protocol.ErrorData
		msg.ParseData(&e)
		log.Warn("server error", "code", e.Code, "message", e.Message, "fatal", e.Fatal)
		if e.Fatal {
			return fmt.Errorf("server rejected stream: %s", e.Message)
		}
	}
}

// synthetic renders a flat background with an obstacle filling the region
// whose distance follows a cosine between near and far.
type synthetic struct {
	width, height int
	region        depth.Region
	period        time.Duration
	near, far     float64
}

func newSynthetic(width, height int, region depth.Region, period time.Duration, near, far float64) *synthetic {
	return &synthetic{width: width, height: height, region: region, period: period, near: near, far: far}
}

func (s *synthetic) Size() (int, int) { return s.width, s.height }

func (s *synthetic) Distance(t time.Duration) float32 {
	phase := 2 * math.Pi * t.Seconds() / s.period.Seconds()
	return float32(s.near + (s.far-s.near)*(1+math.Cos(phase))/2)
}

func (s *synthetic) Next(t time.Duration) (*depth.Frame, error) {
	d := s.Distance(t)
	f := &depth.Frame{Width: s.width, Height: s.height, Depth: make([]float32, s.width*s.height)}
	for i := range f.Depth {
		f.Depth[i] = 5
	}
	for row := s.region.RowMin; row <= s.region.RowMax; row++ {
		for col := s.region.ColMin; col <= s.region.ColMax; col++ {
			f.Depth[row*s.width+col] = d
		}
	}
	return f, nil
}

// recording reads concatenated binary frames.
type recording struct {
	r      *bufio.Reader
	first  *depth.Frame
	width  int
	height int
}

func newRecording(r *bufio.Reader) *recording {
	rec := &recording{r: r}
	if f, err := rec.read(); err == nil {
		rec.first = f
		rec.width, rec.height = f.Width, f.Height
	}
	return rec
}

func (r *recording) Size() (int, int) { return r.width, r.height }

func (r *recording) Next(time.Duration) (*depth.Frame, error) {
	if r.first != nil {
		f := r.first
		r.first = nil
		return f, nil
	}
	return r.read()
}

func (r *recording) read() (*depth.Frame, error) {
	header := make([]byte, protocol.FrameHeaderSize)
	if _, err := io.ReadFull(r.r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	w := binary.LittleEndian.Uint32(header[8:12])
	h := binary.LittleEndian.Uint32(header[12:16])
	n := uint64(w) * uint64(h)
	if n > protocol.MaxFrameSamples {
		return nil, fmt.Errorf("%w: %dx%d", protocol.ErrFrameTooLarge, w, h)
	}

	buf := make([]byte, protocol.FrameHeaderSize+int(n)*4)
	copy(buf, header)
	if _, err := io.ReadFull(r.r, buf[protocol.FrameHeaderSize:]); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return protocol.DecodeFrame(buf)
}

// printStatus fetches the final detector status over HTTP.
func printStatus(server string) {
	u, err := url.Parse(server)
	if err != nil {
		return
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/api/status"

	resp, err := httpc.NewClient(5 * time.Second).Get(u.String())
	if err != nil {
		log.Warn("status unavailable", "error", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	fmt.Println(string(body))
}
