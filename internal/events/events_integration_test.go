//go:build integration

package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("Skipping integration test: NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(SubjectUploadSubmitted, ch)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	pub, err := ConnectNATS(url)
	require.NoError(t, err)
	defer pub.Close()

	want := UploadSubmitted{UploadID: uuid.New(), CollectionID: "col_1", SuccessCount: 3, FailedCount: 1}
	require.NoError(t, pub.PublishUploadSubmitted(context.Background(), want))

	select {
	case msg := <-ch:
		var got UploadSubmitted
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, want.UploadID, got.UploadID)
		assert.Equal(t, 3, got.SuccessCount)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}
