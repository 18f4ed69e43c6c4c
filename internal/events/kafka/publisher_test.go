package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    kafka.Compression
		wantErr bool
	}{
		{"", 0, false},
		{"none", 0, false},
		{"LZ4", kafka.Lz4, false},
		{"zstd", kafka.Zstd, false},
		{"brotli", 0, true},
	}

	for _, tt := range tests {
		got, err := compression(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("compression(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("compression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMessageKey(t *testing.T) {
	if got := string(messageKey([]byte(`{"transaction_id":"abc","x":1}`))); got != "abc" {
		t.Errorf("messageKey() = %q", got)
	}
	if got := messageKey([]byte(`{"accounts":3}`)); got != nil {
		t.Errorf("messageKey() = %q, want nil", got)
	}
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewPublisher(Config{}); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, TopicPrefix: "ledger.", Compression: "snappy"})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if p.prefix != "ledger." {
		t.Errorf("prefix = %q", p.prefix)
	}
	_ = p.Close()
}
