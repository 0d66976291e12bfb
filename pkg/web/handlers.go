package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-depthguard/pkg/hub"
	"github.com/teslashibe/go-depthguard/pkg/metrics"
	"github.com/teslashibe/go-depthguard/pkg/protocol"
)

// ErrUnsupportedDevice is reported when a frame source cannot deliver
// smoothed depth.
var ErrUnsupportedDevice = errors.New("web: device does not support smoothed depth")

var errBadHello = errors.New("web: malformed hello")

const (
	helloReadLimit  = 4 * 1024
	handshakeWait   = 10 * time.Second
	frameReadWait   = 30 * time.Second
	announceTimeout = 10 * time.Second
)

// handleStatus returns the detector's latest status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.det.Status())
}

// handleConfig returns the effective region and alert settings
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"region": s.det.Region(),
		"alert":  s.alertCfg,
	})
}

// handlePicture acknowledges the take-picture action. Capturing is not
// implemented.
func (s *Server) handlePicture(c *fiber.Ctx) error {
	s.logger.Info("take picture requested", "remote", c.IP())

	if s.announcer != nil && s.picturePhrase != "" {
		a, phrase := s.announcer, s.picturePhrase
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
			defer cancel()
			if err := a.Announce(ctx, phrase); err != nil {
				s.logger.Warn("picture announcement failed", "error", err)
			}
		}()
	}

	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
		"error": "take picture is not implemented",
	})
}

// handleStatusWS streams status updates through the hub
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if msg, err := protocol.NewStatusMessage(s.det.Status()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			c.WriteMessage(websocket.TextMessage, data)
		}
	}
	hub.NewClient(s.statusHub, c).Run()
}

// handleFramesWS accepts one depth sensor: a hello handshake followed by
// binary frames.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	metrics.AddIngestConnection(1)
	defer metrics.AddIngestConnection(-1)

	log := s.logger.With("remote", c.RemoteAddr().String())

	c.SetReadLimit(helloReadLimit)
	c.SetReadDeadline(time.Now().Add(handshakeWait))
	msgType, data, err := c.ReadMessage()
	if err != nil {
		log.Debug("frame source left before hello", "error", err)
		return
	}
	if msgType != websocket.TextMessage {
		s.sendError(c, protocol.CodeHandshake, "first message must be hello", false)
		return
	}

	hello, err := s.checkHello(data)
	if errors.Is(err, errBadHello) {
		s.sendError(c, protocol.CodeHandshake, err.Error(), false)
		return
	}
	if err != nil {
		code := protocol.CodeConfiguration
		if errors.Is(err, ErrUnsupportedDevice) {
			code = protocol.CodeUnsupportedDevice
		}
		log.Error("configuration failure", "error", err)
		s.sendError(c, code, err.Error(), true)
		if s.onFatal != nil {
			s.onFatal(err)
		}
		return
	}

	log.Info("frame source connected",
		"device", hello.Device,
		"width", hello.Width,
		"height", hello.Height,
	)
	c.SetReadLimit(int64(protocol.FrameHeaderSize + hello.Width*hello.Height*4))

	for {
		c.SetReadDeadline(time.Now().Add(frameReadWait))
		msgType, data, err := c.ReadMessage()
		if err != nil {
			log.Info("frame source disconnected", "error", err)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := s.ingest(data); err != nil {
				log.Warn("bad frame", "error", err)
				s.sendError(c, protocol.CodeBadMessage, err.Error(), false)
			}
		case websocket.TextMessage:
			if reply := s.control(data); reply != nil {
				c.WriteMessage(websocket.TextMessage, reply)
			}
		}
	}
}

// checkHello validates the handshake: the device must deliver smoothed
// depth and its frames must contain the configured region.
func (s *Server) checkHello(data []byte) (protocol.HelloData, error) {
	var hello protocol.HelloData

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return hello, fmt.Errorf("%w: %v", errBadHello, err)
	}
	if msg.Type != protocol.TypeHello {
		return hello, fmt.Errorf("%w: got %q", errBadHello, msg.Type)
	}
	if err := msg.ParseData(&hello); err != nil {
		return hello, fmt.Errorf("%w: %v", errBadHello, err)
	}

	if hello.Width < 0 || hello.Height < 0 || hello.Width*hello.Height > protocol.MaxFrameSamples {
		return hello, fmt.Errorf("%w: dimensions %dx%d", errBadHello, hello.Width, hello.Height)
	}
	if !hello.SmoothedDepth {
		return hello, ErrUnsupportedDevice
	}
	if err := s.det.Validate(hello.Width, hello.Height); err != nil {
		return hello, err
	}
	return hello, nil
}

// ingest decodes a binary frame and hands it to the detector
func (s *Server) ingest(data []byte) error {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return err
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	s.det.Submit(f)
	return nil
}

// control answers text messages received after the handshake
func (s *Server) control(data []byte) []byte {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return nil
	}

	var ping protocol.PingData
	msg.ParseData(&ping)
	pong, err := protocol.NewPongMessage(ping.Seq)
	if err != nil {
		return nil
	}
	out, err := pong.Bytes()
	if err != nil {
		return nil
	}
	return out
}

func (s *Server) sendError(c *websocket.Conn, code, message string, fatal bool) {
	msg, err := protocol.NewErrorMessage(code, message, fatal)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	c.WriteMessage(websocket.TextMessage, data)
}
