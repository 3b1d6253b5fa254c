package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"

	"github.com/inkipedia/wikimod/commands"
)

// gatewayFrame is one message on the chat gateway socket, both directions.
// Inbound frames carry channel and author; outbound frames only need channel
// and content.
type gatewayFrame struct {
	ChannelID  string         `json:"channel_id"`
	AuthorID   string         `json:"author_id,omitempty"`
	AuthorName string         `json:"author_name,omitempty"`
	Content    string         `json:"content"`
	JumpLink   string         `json:"jump_link,omitempty"`
	Embeds     []gatewayEmbed `json:"embeds,omitempty"`
}

type gatewayEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// RunConsumer reads the chat gateway until ctx is cancelled, reconnecting
// with backoff on socket failure.
func (s *Server) RunConsumer(ctx context.Context) error {
	backoff := time.Second
	for {
		err := s.consumeOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("gateway connection lost, reconnecting", "err", err, "backoff", backoff)
		gatewayReconnects.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

func (s *Server) consumeOnce(ctx context.Context) error {
	header := http.Header{
		"User-Agent": []string{fmt.Sprintf("wikimod/%s", versioninfo.Short())},
	}
	if s.gatewayToken != "" {
		header.Set("Authorization", "Bearer "+s.gatewayToken)
	}
	s.logger.Info("connecting to chat gateway", "url", s.gatewayURL)
	con, _, err := websocket.DefaultDialer.DialContext(ctx, s.gatewayURL, header)
	if err != nil {
		return fmt.Errorf("dialing chat gateway: %w", err)
	}
	defer con.Close()

	// writes come from command handler goroutines as well as alerts
	var writeMu sync.Mutex
	send := func(channelID, content string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return con.WriteJSON(gatewayFrame{ChannelID: channelID, Content: content})
	}

	go func() {
		<-ctx.Done()
		con.Close()
	}()

	for {
		var frame gatewayFrame
		if err := con.ReadJSON(&frame); err != nil {
			return fmt.Errorf("reading gateway frame: %w", err)
		}
		gatewayFrames.Inc()
		s.handleFrame(ctx, frame, send)
	}
}

func (s *Server) handleFrame(ctx context.Context, frame gatewayFrame, send func(channelID, content string) error) {
	// notifier events first; they are not commands
	if alert := s.notifier.HandleEvent(ctx, commands.Notification{
		ChannelID: frame.ChannelID,
		AuthorID:  frame.AuthorID,
		JumpLink:  frame.JumpLink,
		Embeds:    embedsOf(frame),
	}); alert != "" {
		if err := send(s.alertChannel, alert); err != nil {
			s.logger.Error("failed to send vandalism alert", "err", err)
		}
		return
	}

	caller := commands.Caller{ID: frame.AuthorID, Name: frame.AuthorName}
	reply := func(ctx context.Context, text string) error {
		return send(frame.ChannelID, text)
	}
	// sweeps can run for minutes; don't block the read loop
	go s.router.Dispatch(ctx, caller, frame.Content, reply)
}

func embedsOf(frame gatewayFrame) []commands.Embed {
	out := make([]commands.Embed, 0, len(frame.Embeds))
	for _, e := range frame.Embeds {
		out = append(out, commands.Embed{Title: e.Title, Description: e.Description})
	}
	return out
}
