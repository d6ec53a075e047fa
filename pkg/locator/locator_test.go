package locator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

func page(scripts ...string) []byte {
	out := "<!DOCTYPE html><html><head><title>Instagram</title>"
	for _, s := range scripts {
		out += s
	}
	return []byte(out + "</head><body></body></html>")
}

const (
	nextDataUser = `<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"meta":{"username":"no-signature"},"graphql":{"user":{"username":"from_next","profile_pic_url":"https://cdn/next.jpg"}}}}}
</script>`
	nextDataNoUser = `<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script>`
	nextDataBroken = `<script id="__NEXT_DATA__" type="application/json">{"props":</script>`

	sharedDataPath = `<script type="text/javascript">window._sharedData = {"config":{},"entry_data":{"ProfilePage":[{"graphql":{"user":{"username":"from_shared","full_name":"Shared"}}}]}};</script>`
	sharedDataTree = `<script type="text/javascript">window._sharedData = {"entry_data":{"Other":[{"owner":{"username":"from_shared_tree","profile_pic_url_hd":"hd"}}]}} ;
</script>`
	sharedDataBroken = `<script type="text/javascript">window._sharedData = {"entry_data": ;</script>`

	ldJSONUser   = `<script type="application/ld+json">[{"@type":"Person","mainEntity":{"username":"from_ld","edge_owner_to_timeline_media":{"count":3}}}]</script>`
	ldJSONBroken = `<script type="application/ld+json">{"@type":</script>`
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name          string
		doc           []byte
		wantUser      string
		wantStrategy  Strategy
		wantAttempted []Strategy
		wantErr       bool
	}{
		{
			name:          "next data wins and short-circuits",
			doc:           page(nextDataUser, sharedDataPath, ldJSONUser),
			wantUser:      "from_next",
			wantStrategy:  StrategyNextData,
			wantAttempted: []Strategy{StrategyNextData},
		},
		{
			name:          "next data without signature falls through to shared data path",
			doc:           page(nextDataNoUser, sharedDataPath, ldJSONUser),
			wantUser:      "from_shared",
			wantStrategy:  StrategySharedData,
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData},
		},
		{
			name:          "shared data without fixed path uses structural search",
			doc:           page(sharedDataTree),
			wantUser:      "from_shared_tree",
			wantStrategy:  StrategySharedData,
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData},
		},
		{
			name:          "malformed shared data script is skipped",
			doc:           page(sharedDataBroken, sharedDataPath),
			wantUser:      "from_shared",
			wantStrategy:  StrategySharedData,
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData},
		},
		{
			name:          "ld json when earlier sources are malformed",
			doc:           page(nextDataBroken, sharedDataBroken, ldJSONUser),
			wantUser:      "from_ld",
			wantStrategy:  StrategyLDJSON,
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData, StrategyLDJSON},
		},
		{
			name:          "ld json when earlier sources are absent",
			doc:           page(ldJSONUser),
			wantUser:      "from_ld",
			wantStrategy:  StrategyLDJSON,
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData, StrategyLDJSON},
		},
		{
			name:          "nothing usable",
			doc:           page(nextDataBroken, sharedDataBroken, ldJSONBroken),
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData, StrategyLDJSON},
			wantErr:       true,
		},
		{
			name:          "plain html",
			doc:           []byte("<html><body>hello</body></html>"),
			wantAttempted: []Strategy{StrategyNextData, StrategySharedData, StrategyLDJSON},
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			res, err := l.Locate(tt.doc)

			if diff := cmp.Diff(tt.wantAttempted, l.Attempted()); diff != "" {
				t.Errorf("attempted strategies mismatch (-want +got):\n%s", diff)
			}

			if tt.wantErr {
				if !errors.Is(err, profile.ErrExtractionFailed) {
					t.Fatalf("Locate() error = %v, want ErrExtractionFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if res.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, want %q", res.Strategy, tt.wantStrategy)
			}
			if got, _ := res.User.Get("username").Str(); got != tt.wantUser {
				t.Errorf("username = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestAssignedLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`window._sharedData = {"a":1};`, `{"a":1}`},
		{"window._sharedData={\"a\":1} ;\n", `{"a":1}`},
		{`window._sharedData = {"url":"a=b"};`, `{"url":"a=b"}`},
		{`no assignment`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := assignedLiteral(tt.in); got != tt.want {
				t.Errorf("assignedLiteral(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPackageLocate(t *testing.T) {
	res, err := Locate(page(nextDataUser))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if !userSignature(res.User) {
		t.Error("located node should satisfy the user signature")
	}
}
