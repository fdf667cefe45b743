package application

import "testing"

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/blog/my-post", "my post"},
		{"/blog/other", "other"},
		{"/blog/my-post/", "my post"},
		{"/blog/2024//long-read", "2024/long read"},
		{"/blog/caf%C3%A9-notes", "café notes"},
		{"/blog//", "Unknown"},
		{"/blog/", "Unknown"},
	}
	for _, tt := range tests {
		if got := DeriveTitle(tt.path, "/blog/"); got != tt.want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRefreshOptions_Qualifies(t *testing.T) {
	opts := RefreshOptions{}
	tests := []struct {
		path string
		want bool
	}{
		{"/blog/my-post", true},
		{"/blog/", false},
		{"/blog", false},
		{"/blog/tag/go", false},
		{"/about", false},
		{"/blog/a/tag/b", false},
	}
	for _, tt := range tests {
		if got := opts.Qualifies(tt.path); got != tt.want {
			t.Errorf("Qualifies(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	custom := RefreshOptions{ContentPrefix: "/posts/", ExcludedSegment: "/drafts/"}
	if !custom.Qualifies("/posts/hello") || custom.Qualifies("/posts/drafts/x") || custom.Qualifies("/blog/hello") {
		t.Errorf("custom prefix/segment not honored")
	}
}
