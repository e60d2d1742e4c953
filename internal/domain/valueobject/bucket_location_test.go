package valueobject

import "testing"

func TestNewBucketLocation(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		region  string
		wantErr bool
	}{
		{"valid", "my-bucket", "us-east-1", false},
		{"trimmed", "  my-bucket ", " us-east-1", false},
		{"empty bucket", "", "us-east-1", true},
		{"blank region", "my-bucket", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewBucketLocation(tt.bucket, tt.region)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBucketLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (loc.Bucket() != "my-bucket" || loc.Region() != "us-east-1") {
				t.Fatalf("unexpected location: %s/%s", loc.Bucket(), loc.Region())
			}
		})
	}
}

func TestBucketLocationObjectURL(t *testing.T) {
	loc, err := NewBucketLocation("my-bucket", "us-east-1")
	if err != nil {
		t.Fatalf("NewBucketLocation() error = %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"a.png", "https://my-bucket.s3.us-east-1.amazonaws.com/a.png"},
		{"images/2024/b.png", "https://my-bucket.s3.us-east-1.amazonaws.com/images/2024/b.png"},
		// keys are inserted verbatim
		{"with space+plus.png", "https://my-bucket.s3.us-east-1.amazonaws.com/with space+plus.png"},
	}

	for _, tt := range tests {
		if got := loc.ObjectURL(tt.key); got != tt.want {
			t.Errorf("ObjectURL(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
