package link

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/danmuck/wlmlink/internal/protocol"
	"github.com/danmuck/wlmlink/internal/protocol/frame"
)

// HandshakeTasks is the captured start-up sequence the instrument sends
// before it starts polling.
var HandshakeTasks = []protocol.Task{
	protocol.TaskStartLink,
	protocol.TaskSetSwitch,
	protocol.TaskWLMServerApp,
	protocol.TaskSetMeasurementOp,
	protocol.TaskCheckWLMServer,
	protocol.TaskConfigureWLM,
}

// Reply is one decoded task-1 reply.
type Reply struct {
	Raw        []byte
	Seq        uint64
	ID         any
	Name       string
	Parameters map[string]any
}

type replyDocument struct {
	Message struct {
		TaskCount      []int    `json:"task-count"`
		TransmissionID []uint64 `json:"transmission-id"`
		Transmission   struct {
			Task1 struct {
				ID         any            `json:"id"`
				Name       string         `json:"name"`
				Parameters map[string]any `json:"parameters"`
			} `json:"task1"`
		} `json:"transmission"`
	} `json:"message"`
}

// Client speaks to a control endpoint the way the instrument does.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *frame.Reader
	nextID int64
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: frame.NewReader(conn),
		nextID: 1,
	}
}

// Send writes one request and waits for its reply.
func (c *Client) Send(ctx context.Context, name string, params map[string]any) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	out, err := protocol.Encode(protocol.NewRequestDocument(id, []any{id}, name, params))
	if err != nil {
		return Reply{}, err
	}

	deadline, _ := ctx.Deadline()
	_ = c.conn.SetDeadline(deadline)
	if _, err := c.conn.Write(out); err != nil {
		return Reply{}, fmt.Errorf("link: send %s: %w", name, err)
	}
	fr, err := c.reader.Next()
	if err != nil {
		return Reply{}, fmt.Errorf("link: await %s reply: %w", name, err)
	}
	return decodeReply(fr.Raw)
}

// Handshake replays HandshakeTasks and returns the replies in order.
func (c *Client) Handshake(ctx context.Context) ([]Reply, error) {
	replies := make([]Reply, 0, len(HandshakeTasks))
	for _, task := range HandshakeTasks {
		r, err := c.Send(ctx, task.String(), nil)
		if err != nil {
			return replies, err
		}
		replies = append(replies, r)
	}
	return replies, nil
}

// GetWavelength polls once and returns the reported value and status.
func (c *Client) GetWavelength(ctx context.Context) (float64, string, error) {
	r, err := c.Send(ctx, protocol.TaskGetWavelength.String(), nil)
	if err != nil {
		return 0, "", err
	}
	status, _ := r.Parameters["status"].(string)
	values, _ := r.Parameters["wavelength"].([]any)
	if len(values) == 0 {
		return 0, status, fmt.Errorf("link: reply has no wavelength")
	}
	n, ok := values[0].(json.Number)
	if !ok {
		return 0, status, fmt.Errorf("link: wavelength is %T", values[0])
	}
	v, err := n.Float64()
	return v, status, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func decodeReply(raw []byte) (Reply, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc replyDocument
	if err := dec.Decode(&doc); err != nil {
		return Reply{}, fmt.Errorf("link: decode reply: %w", err)
	}
	if len(doc.Message.TransmissionID) == 0 {
		return Reply{}, fmt.Errorf("%w: reply missing transmission-id", protocol.ErrStructure)
	}
	task := doc.Message.Transmission.Task1
	return Reply{
		Raw:        raw,
		Seq:        doc.Message.TransmissionID[0],
		ID:         task.ID,
		Name:       task.Name,
		Parameters: task.Parameters,
	}, nil
}
