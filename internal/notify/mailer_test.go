package notify

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sortec/entity"
	"sortec/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smtpServer accepts mail and holds every end-of-data reply until `parallel`
// messages are waiting, or until hold expires.
type smtpServer struct {
	ln       net.Listener
	parallel int32
	hold     time.Duration
	waiting  atomic.Int32
	peak     atomic.Int32
	once     sync.Once
	release  chan struct{}
	received atomic.Int32
}

func newSMTPServer(t *testing.T, parallel int32, hold time.Duration) *smtpServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpServer{ln: ln, parallel: parallel, hold: hold, release: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *smtpServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *smtpServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *smtpServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case cmd == "DATA":
			reply("354 go ahead")
			for {
				data, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if data == ".\r\n" {
					break
				}
			}
			s.wait()
			s.received.Add(1)
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func (s *smtpServer) wait() {
	n := s.waiting.Add(1)
	defer s.waiting.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if n >= s.parallel {
		s.once.Do(func() { close(s.release) })
	}
	select {
	case <-s.release:
	case <-time.After(s.hold):
	}
}

func TestMailer_DeliversInParallel(t *testing.T) {
	server := newSMTPServer(t, 2, 3*time.Second)
	mailer, err := NewMailer(config.Mail{
		Host: "127.0.0.1",
		Port: server.port(),
		From: "administrador@sorteosc.com",
		TLS:  false,
	}, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, kind := range []entity.NotificationKind{entity.KindApproved, entity.KindDenied} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- mailer.Send(ctx, entity.NotificationIntent{
				Kind:      kind,
				Recipient: "jose@example.com",
				Payload: entity.NotificationPayload{
					RegistrationId:  "id-1",
					ParticipantName: "Jose",
					ContestCode:     "SORTECJP003",
				},
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(2), server.received.Load())
	assert.Equal(t, int32(2), server.peak.Load())
}

func TestMailer_InvalidRecipient(t *testing.T) {
	mailer, err := NewMailer(config.Mail{Host: "127.0.0.1", Port: 2525, From: "administrador@sorteosc.com"}, discardLogger())
	require.NoError(t, err)

	err = mailer.Send(context.Background(), entity.NotificationIntent{Kind: entity.KindApproved, Recipient: "not an address"})
	var derr *entity.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, entity.KindApproved, derr.Kind)
}
