package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/citrus/pkg/endpoint"
	citruserrors "github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/message"
)

func TestMatchValue(t *testing.T) {
	assert.True(t, MatchValue("a", " a "))
	assert.True(t, MatchValue("@ignore@", "anything"))
	assert.False(t, MatchValue("a", "b"))
}

func TestSendReceive(t *testing.T) {
	tc, _ := newTestContext(t)
	ep := endpoint.NewDirect("orders")
	tc.References().Bind("orders", ep)
	tc.SetVariable("orderId", "42")

	send := NewSend("orders", `{"id": "${orderId}", "items": [1, 2]}`)
	send.Headers = map[string]string{"operation": "create", "order": "${orderId}"}
	require.NoError(t, send.Execute(context.Background(), tc))

	_, ok := tc.Messages().Get("send(orders)")
	assert.True(t, ok)

	recv := NewReceive("orders")
	recv.Timeout = "1s"
	recv.MessageName = "created"
	recv.Selector = map[string]string{"operation": "create"}
	recv.Payload = `{"id": "42", "items": [1, 2]}`
	recv.Headers = map[string]string{"order": "${orderId}", message.HeaderID: "@ignore@"}
	recv.ExtractHeaders = map[string]string{"operation": "op"}
	recv.ExtractJQ = map[string]string{"itemCount": ".items | length", "receivedId": ".id"}
	require.NoError(t, recv.Execute(context.Background(), tc))

	op, _ := tc.GetVariable("op")
	assert.Equal(t, "create", op)
	count, _ := tc.GetVariable("itemCount")
	assert.Equal(t, "2", count)
	id, _ := tc.GetVariable("receivedId")
	assert.Equal(t, "42", id)

	stored, ok := tc.Messages().Get("created")
	require.True(t, ok)
	assert.Equal(t, "created", stored.Name)
}

func TestReceive_ValidationFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(r *Receive)
	}{
		{"payload mismatch", func(r *Receive) { r.Payload = "other" }},
		{"header mismatch", func(r *Receive) { r.Headers = map[string]string{"type": "b"} }},
		{"missing header", func(r *Receive) { r.Headers = map[string]string{"absent": "x"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, _ := newTestContext(t)
			ep := endpoint.NewDirect("q")
			tc.References().Bind("q", ep)
			require.NoError(t, ep.Send(ctx, message.New("hello").WithHeader("type", "a")))

			r := NewReceive("q")
			tt.modify(r)
			err := r.Execute(ctx, tc)
			require.Error(t, err)
			assert.True(t, citruserrors.Matches(err, "ValidationException"))
		})
	}
}

func TestReceive_Timeout(t *testing.T) {
	tc, _ := newTestContext(t)
	tc.References().Bind("q", endpoint.NewDirect("q"))

	r := NewReceive("q")
	r.Timeout = "20ms"
	err := r.Execute(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, citruserrors.Matches(err, "ActionTimeoutException"))
}

func TestReceive_UnknownEndpoint(t *testing.T) {
	tc, _ := newTestContext(t)
	err := NewReceive("nowhere").Execute(context.Background(), tc)
	require.Error(t, err)
	var notFound *citruserrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestReceive_ExtractFailure(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestContext(t)
	ep := endpoint.NewDirect("q")
	tc.References().Bind("q", ep)
	require.NoError(t, ep.Send(ctx, message.New("not json")))

	r := NewReceive("q")
	r.ExtractJQ = map[string]string{"v": ".id"}
	err := r.Execute(ctx, tc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract variable 'v'")
}

func TestPurgeEndpoint(t *testing.T) {
	ctx := context.Background()
	tc, _ := newTestContext(t)
	a := endpoint.NewDirect("a")
	b := endpoint.NewDirect("b")
	tc.References().Bind("a", a)
	tc.References().Bind("b", b)

	require.NoError(t, a.Send(ctx, message.New("1")))
	require.NoError(t, b.Send(ctx, message.New("2").WithHeader("keep", "yes")))
	require.NoError(t, b.Send(ctx, message.New("3")))

	require.NoError(t, NewPurgeEndpoint("a").Execute(ctx, tc))
	assert.Equal(t, 0, a.Len())

	p := NewPurgeEndpoint("b")
	p.Selector = map[string]string{"keep": "yes"}
	require.NoError(t, p.Execute(ctx, tc))
	assert.Equal(t, 1, b.Len())

	assert.Error(t, NewPurgeEndpoint("missing").Execute(ctx, tc))
}

func TestSend_UnknownVariable(t *testing.T) {
	tc, _ := newTestContext(t)
	tc.References().Bind("q", endpoint.NewDirect("q"))
	err := NewSend("q", "${nope}").Execute(context.Background(), tc)
	assert.Error(t, err)
	_, ok := tc.Messages().Get("send(q)")
	assert.False(t, ok)
}
