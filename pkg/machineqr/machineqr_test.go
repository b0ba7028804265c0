package machineqr

import (
	"bytes"
	"image/png"
	"testing"

	"forest-machine-map/pkg/machines"
)

func TestRenderBadgeColor(t *testing.T) {
	tests := []struct {
		status machines.Status
		want   machines.Color
	}{
		{machines.StatusWorking, machines.ColorGreen},
		{machines.StatusIdle, machines.ColorGold},
		{machines.StatusUnknown, machines.ColorGray},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			img, err := Render("https://example.test/machines/M01/report", tt.status, Options{Size: 400})
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			b := img.Bounds()
			if got := img.RGBAAt(b.Dx()/2, b.Dy()/2); got != StatusRGBA(tt.want) {
				t.Fatalf("center = %v, want %v", got, StatusRGBA(tt.want))
			}
		})
	}
}

func TestRenderFaultHasHollowCenter(t *testing.T) {
	img, err := Render("M03", machines.StatusFault, Options{Size: 400})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if got := img.RGBAAt(b.Dx()/2, b.Dy()/2); got.R != 0xFF || got.G != 0xFF {
		t.Fatalf("fault center = %v, want background", got)
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, "https://example.test/machines/M02/report", machines.StatusIdle, Options{}); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() < 256 {
		t.Fatalf("image too small: %v", img.Bounds())
	}
}

func TestRenderRejectsEmptyContent(t *testing.T) {
	if _, err := Render("", machines.StatusIdle, Options{}); err == nil {
		t.Fatal("expected error")
	}
}
