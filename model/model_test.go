package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_CannedAndEcho(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hi", "hello there")

	resp, err := Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)

	resp, err = Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "other"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Text)
	assert.Len(t, m.Requests(), 2)
	assert.Equal(t, Info{Name: "mock", Provider: "test"}, m.Info())
}

func TestMockModel_Responder(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.Responder = func(req Request) (string, error) {
		if req.Instructions == "fail" {
			return "", errors.New("boom")
		}
		return "by responder", nil
	}

	resp, err := Collect(context.Background(), m, Request{Messages: []Message{{Role: RoleUser, Text: "x"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "by responder", resp.Text)

	_, err = Collect(context.Background(), m, Request{Instructions: "fail", Messages: []Message{{Role: RoleUser, Text: "x"}}}, nil)
	assert.EqualError(t, err, "boom")
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("q", "one two three")

	var partials []string
	resp, err := Collect(context.Background(), m, Request{
		Messages: []Message{{Role: RoleUser, Text: "q"}},
		Stream:   true,
	}, func(r Response) { partials = append(partials, r.Text) })
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two ", "three"}, partials)
	assert.Equal(t, "one two three", resp.Text)
}

func TestMockModel_NoMessages(t *testing.T) {
	_, err := Collect(context.Background(), NewMockModel("m", "p"), Request{}, nil)
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, NewMockModel("m", "p"), Request{Messages: []Message{{Role: RoleUser, Text: "x"}}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestLastText(t *testing.T) {
	assert.Equal(t, "", Request{}.LastText())
	assert.Equal(t, "b", Request{Messages: []Message{{Text: "a"}, {Text: "b"}}}.LastText())
}
