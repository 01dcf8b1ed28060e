package s3

import (
	"testing"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore("trendlake-test-bucket", OptRegion("eu-west-1"))
	if err != nil {
		t.Fatalf("getting new store: %v", err)
	}
	if s.bucket != "trendlake-test-bucket" {
		t.Fatalf("wrong bucket name: %s", s.bucket)
	}
	if s.region != "eu-west-1" {
		t.Fatalf("wrong region name: %s", s.region)
	}
	if s.s3 == nil {
		t.Fatal("client not initialized")
	}
}

func TestNewStoreDefaultRegion(t *testing.T) {
	s, err := NewStore("trendlake-test-bucket")
	if err != nil {
		t.Fatalf("getting new store: %v", err)
	}
	if s.region != "us-east-1" {
		t.Fatalf("wrong default region: %s", s.region)
	}
}
