package persistence

import (
	"context"
	"testing"
)

func TestPostgresPingWithoutPool(t *testing.T) {
	if err := (&Postgres{}).Ping(context.Background()); err == nil {
		t.Fatal("expected error pinging without a pool")
	}
	var p *Postgres
	if err := p.Ping(context.Background()); err == nil {
		t.Fatal("expected error pinging nil handle")
	}
}

func TestRedisPingWithoutClient(t *testing.T) {
	if err := (&Redis{}).Ping(context.Background()); err == nil {
		t.Fatal("expected error pinging without a client")
	}
}
