package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

// registry is the persisted connection set. Entries keep insertion order,
// which is also the order of the JSON object on disk.
type registry struct {
	order  []string
	conns  map[string]*api.ConnectionConfig
	active string
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]*api.ConnectionConfig)}
}

func (r *registry) get(id string) (*api.ConnectionConfig, bool) {
	c, ok := r.conns[id]
	return c, ok
}

func (r *registry) put(cfg api.ConnectionConfig) {
	if _, exists := r.conns[cfg.ID]; !exists {
		r.order = append(r.order, cfg.ID)
	}
	r.conns[cfg.ID] = &cfg
}

func (r *registry) remove(id string) {
	delete(r.conns, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
}

func (r *registry) list() []api.ConnectionConfig {
	out := make([]api.ConnectionConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.conns[id])
	}
	return out
}

// setActive moves the active pointer and mirrors it into every is_active
// flag. An empty id clears it.
func (r *registry) setActive(id string) {
	r.active = id
	for cid, c := range r.conns {
		c.IsActive = cid == id
	}
}

// normalize repairs state read from disk: a dangling active pointer is
// cleared and the is_active flags are made to agree with the pointer.
func (r *registry) normalize() (cleared bool) {
	if r.active != "" {
		if _, ok := r.conns[r.active]; !ok {
			r.active = ""
			cleared = true
		}
	}
	r.setActive(r.active)
	return cleared
}

// MarshalJSON writes {"connections": {id: cfg, ...}, "active_connection_id": id|null}
// with connections in insertion order.
func (r *registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"connections":{`)
	for i, id := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.conns[id])
		if err != nil {
			return nil, fmt.Errorf("encoding connection %q: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`},"active_connection_id":`)
	active, _ := json.Marshal(api.OptionalString(r.active))
	buf.Write(active)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode returns the indented on-disk form.
func (r *registry) encode() ([]byte, error) {
	raw, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// decodeRegistry parses a registry document, keeping the order of the
// connections object. Entries missing an id take their key.
func decodeRegistry(data []byte) (*registry, error) {
	r := newRegistry()
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "connections":
			if err := decodeConnections(dec, r); err != nil {
				return nil, err
			}
		case "active_connection_id":
			var active *string
			if err := dec.Decode(&active); err != nil {
				return nil, fmt.Errorf("active_connection_id: %w", err)
			}
			if active != nil {
				r.active = *active
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeConnections(dec *json.Decoder, r *registry) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("connections: expected object, got %v", tok)
	}
	for dec.More() {
		id, err := readKey(dec)
		if err != nil {
			return err
		}
		var cfg api.ConnectionConfig
		if err := dec.Decode(&cfg); err != nil {
			return fmt.Errorf("connection %q: %w", id, err)
		}
		if cfg.ID == "" {
			cfg.ID = id
		}
		if cfg.ID != id {
			return fmt.Errorf("connection key %q does not match id %q", id, cfg.ID)
		}
		r.put(cfg)
	}
	return expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

var errMalformed = errors.New("malformed registry document")

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", errMalformed, want, tok)
	}
	return nil
}
