package quality

import (
	"testing"

	"musicsearch/searchcore/internal/domain"
)

func seeders(n int) *int { return &n }

func TestScoreTorrentFlacBase(t *testing.T) {
	s := domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Format:     "FLAC",
		Title:      "Artist - Album [FLAC]",
		Seeders:    seeders(10),
		SizeBytes:  300 * 1024 * 1024,
	}
	got := Score(s)
	want := 200.0 + 20.0 + 30.0 // format + seeders(10*2) + size(300/10)
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreTorrentFlacHiRes(t *testing.T) {
	s := domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Format:     "FLAC",
		Title:      "Artist - Album [FLAC 24/192]",
		Seeders:    seeders(0),
	}
	got := Score(s)
	want := 260.0 // 200 + 60
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreTorrentFlacDSD(t *testing.T) {
	s := domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Format:     "FLAC",
		Title:      "Artist - Album [DSD FLAC]",
		Seeders:    seeders(0),
	}
	got := Score(s)
	want := 300.0 // 200 + 100
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreTorrentMP3Tiers(t *testing.T) {
	cases := []struct {
		title string
		want  float64
	}{
		{"Artist - Album [MP3 320]", 150},
		{"Artist - Album [MP3 V0]", 140},
		{"Artist - Album [MP3 256]", 120},
		{"Artist - Album [MP3]", 80},
	}
	for _, tc := range cases {
		s := domain.MusicSource{SourceKind: domain.SourceKindTorrent, Format: "MP3", Title: tc.title, Seeders: seeders(0)}
		if got := Score(s); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.title, got, tc.want)
		}
	}
}

func TestScoreTorrentSeederBonusCapped(t *testing.T) {
	s := domain.MusicSource{SourceKind: domain.SourceKindTorrent, Format: "ALAC", Seeders: seeders(1000)}
	got := Score(s)
	want := 190.0 + 100.0 // seeder bonus capped at 100
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreTorrentSizeBonusCapped(t *testing.T) {
	s := domain.MusicSource{SourceKind: domain.SourceKindTorrent, Format: "ALAC", Seeders: seeders(0), SizeBytes: 10 * 1024 * 1024 * 1024}
	got := Score(s)
	want := 190.0 + 50.0 // size bonus capped at 50
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreStreamCodecBonuses(t *testing.T) {
	cases := map[string]float64{
		"FLAC":   200,
		"OPUS":   160,
		"AAC":    140,
		"M4A":    140,
		"VORBIS": 120,
		"MP3":    100,
		"RANDOM": 80,
	}
	for codec, wantCodecBonus := range cases {
		s := domain.MusicSource{SourceKind: domain.SourceKindStreamOther, Codec: codec, BitrateKbps: 320}
		got := Score(s)
		want := wantCodecBonus + 100 + 50 // bitrate bonus maxed at 320/320*100=100, source bonus 50
		if got != want {
			t.Errorf("%s: got %v want %v", codec, got, want)
		}
	}
}

func TestScoreStreamBitrateUnparseable(t *testing.T) {
	s := domain.MusicSource{SourceKind: domain.SourceKindStreamOther, Codec: "MP3", BitrateKbps: 0}
	got := Score(s)
	want := 100.0 + 50.0 + 50.0 // default bitrate bonus of 50
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestScoreAllBonusesAtCapStayWithinMax(t *testing.T) {
	s := domain.MusicSource{
		SourceKind: domain.SourceKindTorrent,
		Format:     "FLAC",
		Title:      "Artist - Album [DSD FLAC 24/192 vinyl]",
		Seeders:    seeders(1000),
		SizeBytes:  100 * 1024 * 1024 * 1024,
	}
	got := Score(s)
	want := 375.0 + 100.0 + 50.0 // format(200+100+60+15) + seeders cap + size cap
	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got > maxScore {
		t.Errorf("got %v above max %v", got, maxScore)
	}
}

func TestScoreIsPureAndRepeatable(t *testing.T) {
	s := domain.MusicSource{SourceKind: domain.SourceKindTorrent, Format: "FLAC", Seeders: seeders(5), SizeBytes: 123456}
	a := Score(s)
	b := Score(s)
	if a != b {
		t.Errorf("Score is not deterministic: %v != %v", a, b)
	}
}
