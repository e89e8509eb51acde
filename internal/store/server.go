package store

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"go.uber.org/zap"

	"github.com/leonardcser/cachier/internal/metrics"
)

// Serve accepts connections on l and answers protocol requests against s
// until ctx is cancelled or the listener fails.
func Serve(ctx context.Context, l net.Listener, s Store, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		go handleConn(conn, s, log)
	}
}

func handleConn(conn net.Conn, s Store, log *zap.Logger) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp := handle(s, req)
		metrics.RecordStore(opLabel(req.Op), resp.OK)
		if !resp.OK {
			log.Debug("store request failed", zap.String("op", req.Op), zap.String("error", resp.Error))
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func handle(s Store, req Request) Response {
	switch req.Op {
	case "ping":
		if !s.Available() {
			return errorResponse(ErrUnavailable)
		}
		return Response{OK: true}
	case "get":
		v, ok, err := s.GetItem(req.Key)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Found: ok, Value: v}
	case "set":
		if err := s.SetItem(req.Key, req.Value); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	case "remove":
		if err := s.RemoveItem(req.Key); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	case "set_many":
		if err := SetAll(s, req.Items); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	case "remove_many":
		if err := RemoveAll(s, req.Keys...); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}

// opLabel keeps the metric label set bounded to the known ops.
func opLabel(op string) string {
	switch op {
	case "ping", "get", "set", "remove", "set_many", "remove_many":
		return op
	}
	return "unknown"
}
