package store

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/opsforge/analytics-engine/internal/models"
)

// ValkeyStore implements HistoryStore on a Valkey/Redis-compatible server.
// Each signature is a list key; RPUSH keeps appends atomic and LTRIM enforces
// the retention cap server-side.
type ValkeyStore struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr            string
	Username        string
	Password        string
	DB              int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	TLS             bool
	KeyPrefix       string
	MaxPerSignature int
}

// NewValkeyStore creates a store using the supplied configuration. It pings
// the target to fail fast when credentials or connectivity are wrong.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "opsforge:selection:"
	}
	normaliseDurations(&cfg)
	s := &ValkeyStore{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// GetHistory fetches the full observation list for a signature. A missing key
// is an empty history.
func (s *ValkeyStore) GetHistory(ctx context.Context, signature string) ([]models.SelectionObservation, error) {
	var history []models.SelectionObservation
	err := s.withConn(ctx, func(vc *valkeyConn) error {
		if err := vc.writeCommand("LRANGE", []byte(s.key(signature)), []byte("0"), []byte("-1")); err != nil {
			return err
		}
		reply, err := vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replyArray {
			return fmt.Errorf("unexpected valkey reply type %q for LRANGE", reply.typ)
		}
		history = make([]models.SelectionObservation, 0, len(reply.items))
		for _, item := range reply.items {
			var obs models.SelectionObservation
			if err := json.Unmarshal(item.data, &obs); err != nil {
				return fmt.Errorf("decode observation: %w", err)
			}
			history = append(history, obs)
		}
		return nil
	})
	return history, err
}

// AppendHistory pushes one observation onto the signature's list and trims it
// to the retention cap.
func (s *ValkeyStore) AppendHistory(ctx context.Context, signature string, obs models.SelectionObservation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	key := s.key(signature)
	return s.withConn(ctx, func(vc *valkeyConn) error {
		if err := vc.writeCommand("RPUSH", []byte(key), payload); err != nil {
			return err
		}
		reply, err := vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replyInteger {
			return fmt.Errorf("unexpected RPUSH response type %q", reply.typ)
		}
		if s.cfg.MaxPerSignature <= 0 {
			return nil
		}
		start := strconv.Itoa(-s.cfg.MaxPerSignature)
		if err := vc.writeCommand("LTRIM", []byte(key), []byte(start), []byte("-1")); err != nil {
			return err
		}
		reply, err = vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replySimpleString || string(reply.data) != "OK" {
			return fmt.Errorf("unexpected LTRIM response: %s", reply.data)
		}
		return nil
	})
}

// Close closes the store (no pooled state to release).
func (s *ValkeyStore) Close() error { return nil }

func (s *ValkeyStore) key(signature string) string {
	return s.cfg.KeyPrefix + signature
}

func (s *ValkeyStore) ping(ctx context.Context) error {
	return s.withConn(ctx, func(vc *valkeyConn) error {
		if err := vc.writeCommand("PING"); err != nil {
			return err
		}
		reply, err := vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replySimpleString || string(reply.data) != "PONG" {
			return fmt.Errorf("unexpected PING response: %s", reply.data)
		}
		return nil
	})
}

func (s *ValkeyStore) withConn(ctx context.Context, fn func(*valkeyConn) error) error {
	var lastErr error
	retries := s.cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		vc, err := s.dial(ctx)
		if err != nil {
			lastErr = err
			if shouldRetry(err) && attempt < retries-1 {
				time.Sleep(backoff(attempt))
				continue
			}
			return err
		}

		err = s.bootstrap(vc)
		if err != nil {
			vc.close()
			lastErr = err
			if shouldRetry(err) && attempt < retries-1 {
				time.Sleep(backoff(attempt))
				continue
			}
			return err
		}

		err = fn(vc)
		vc.close()
		if err == nil {
			return nil
		}
		lastErr = err
		if shouldRetry(err) && attempt < retries-1 {
			time.Sleep(backoff(attempt))
			continue
		}
		return err
	}
	return lastErr
}

func (s *ValkeyStore) dial(ctx context.Context) (*valkeyConn, error) {
	dialer := net.Dialer{Timeout: deadlineOr(ctx, s.cfg.DialTimeout)}
	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLS {
		host := hostForTLS(s.cfg.Addr)
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
		conn, err = tls.DialWithDialer(&dialer, "tcp", s.cfg.Addr, tlsCfg)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &valkeyConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		cfg:    s.cfg,
	}, nil
}

func (s *ValkeyStore) bootstrap(vc *valkeyConn) error {
	if s.cfg.Password != "" {
		cmd := []string{"AUTH"}
		if s.cfg.Username != "" {
			cmd = append(cmd, s.cfg.Username, s.cfg.Password)
		} else {
			cmd = append(cmd, s.cfg.Password)
		}
		if err := vc.writeStrings(cmd...); err != nil {
			return err
		}
		reply, err := vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replySimpleString || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("auth failed: %s", reply.data)
		}
	}
	if s.cfg.DB > 0 {
		if err := vc.writeCommand("SELECT", []byte(strconv.Itoa(s.cfg.DB))); err != nil {
			return err
		}
		reply, err := vc.readReply()
		if err != nil {
			return err
		}
		if reply.typ != replySimpleString || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("select failed: %s", reply.data)
		}
	}
	return nil
}
