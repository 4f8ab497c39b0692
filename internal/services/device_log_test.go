package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

type recordingSink struct {
	batches []DeviceLogBatch
	err     error
}

func (r *recordingSink) Write(ctx context.Context, batch DeviceLogBatch) error {
	r.batches = append(r.batches, batch)
	return r.err
}

func testBatch() DeviceLogBatch {
	return DeviceLogBatch{
		Version:    "v1",
		ReceivedAt: time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC),
		RemoteAddr: "192.0.2.10",
		Logs:       []string{"Web service error for pass.org.example.member", "second message"},
	}
}

func TestS3LogSink(t *testing.T) {
	client := &fakeS3{}
	sink := newS3LogSink(client, "device-logs-bucket", "passbook/logs")

	batch := testBatch()
	if err := sink.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("got %d uploads, want 1", len(client.inputs))
	}

	in := client.inputs[0]
	if *in.Bucket != "device-logs-bucket" {
		t.Errorf("bucket = %q", *in.Bucket)
	}
	keyPattern := regexp.MustCompile(`^passbook/logs/2024/03/07/[0-9a-f-]{36}\.json$`)
	if !keyPattern.MatchString(*in.Key) {
		t.Errorf("key %q does not match %s", *in.Key, keyPattern)
	}

	var stored DeviceLogBatch
	if err := json.Unmarshal(client.bodies[0], &stored); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(batch, stored); diff != "" {
		t.Errorf("stored batch mismatch (-want +got):\n%s", diff)
	}

	// empty batches are not uploaded
	if err := sink.Write(context.Background(), DeviceLogBatch{}); err != nil {
		t.Fatal(err)
	}
	if len(client.inputs) != 1 {
		t.Error("empty batch should not be uploaded")
	}

	client.err = errors.New("access denied")
	if err := sink.Write(context.Background(), batch); err == nil {
		t.Error("expected upload error")
	}
}

func TestMultiLogSink(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}

	multi := MultiLogSink{failing, ok, &ConsoleLogSink{}}
	err := multi.Write(context.Background(), testBatch())

	if err == nil || !errors.Is(err, failing.err) {
		t.Errorf("expected the failing sink's error, got %v", err)
	}
	if len(ok.batches) != 1 {
		t.Error("a failing sink must not stop the others")
	}
}

func TestConsoleLogSink(t *testing.T) {
	if err := (&ConsoleLogSink{}).Write(context.Background(), testBatch()); err != nil {
		t.Errorf("Write() error: %v", err)
	}
}

func TestS3ObjectKeyUsesUTC(t *testing.T) {
	sink := newS3LogSink(&fakeS3{}, "b", "logs")
	local := time.Date(2024, 3, 8, 1, 0, 0, 0, time.FixedZone("CET", 2*60*60))

	key := sink.objectKey(local)
	if !strings.HasPrefix(key, "logs/2024/03/07/") {
		t.Errorf("key %q should use the UTC date", key)
	}
}
