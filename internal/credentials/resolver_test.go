package credentials

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeProvider struct {
	name  Source
	cred  *Credential
	err   error
	calls int
}

func (f *fakeProvider) Name() Source { return f.name }

func (f *fakeProvider) Lookup(context.Context) (*Credential, error) {
	f.calls++
	return f.cred, f.err
}

func TestResolverPriority(t *testing.T) {
	manual := &fakeProvider{name: SourceManual, err: ErrNotFound}
	browser := &fakeProvider{name: SourceBrowser, cred: &Credential{Token: "sk-ant-sid01-browser", Kind: KindSessionKey}}
	cli := &fakeProvider{name: SourceClaudeCode, cred: &Credential{Token: "sk-ant-oat01-cli", Kind: KindOAuth}}

	cred, err := NewResolver(nil, manual, browser, cli).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cred.Source != SourceBrowser {
		t.Errorf("Source = %q, want browser", cred.Source)
	}
	if cred.SubscriptionType != "unknown" {
		t.Errorf("SubscriptionType = %q, want unknown", cred.SubscriptionType)
	}
	if cli.calls != 0 {
		t.Error("lower priority source should not be consulted")
	}
}

func TestResolverSkipsFailingSources(t *testing.T) {
	broken := &fakeProvider{name: SourceManual, err: errors.New("parse session.json: bad json")}
	empty := &fakeProvider{name: SourceBrowser, cred: &Credential{}}
	cli := &fakeProvider{name: SourceClaudeCode, cred: &Credential{Token: "tok", Kind: KindOAuth, SubscriptionType: "max"}}

	cred, err := NewResolver(nil, broken, empty, cli).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cred.Source != SourceClaudeCode || cred.SubscriptionType != "max" {
		t.Errorf("got %+v", cred)
	}
}

func TestResolverNothingFound(t *testing.T) {
	r := NewResolver(nil, &fakeProvider{name: SourceManual, err: ErrNotFound})
	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
	if r.Has(context.Background()) {
		t.Error("Has() = true with no credentials")
	}
}

func TestResolverHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{name: SourceManual, cred: &Credential{Token: "x"}}
	if _, err := NewResolver(nil, p).Resolve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
