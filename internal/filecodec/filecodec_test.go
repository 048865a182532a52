package filecodec

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

const docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noiseJPEG compresses poorly, which makes it a stand in for a large camera photo.
func noiseJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

func pdfBytes(size int) []byte {
	b := bytes.Repeat([]byte("0"), size)
	copy(b, "%PDF-1.4\n")
	return b
}

func docxBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("<xml/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCheckAcceptsAllowedTypes(t *testing.T) {
	mime, err := Check(model.FileKindPhoto, pngBytes(t, 8, 8), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = Check(model.FileKindPhoto, noiseJPEG(t, 8, 8, 80), "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	mime, err = Check(model.FileKindResume, pdfBytes(64), "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	mime, err = Check(model.FileKindResume, docxBytes(t), docxType)
	require.NoError(t, err)
	assert.Equal(t, docxType, mime)
}

func TestCheckRejectsWrongSlot(t *testing.T) {
	_, err := Check(model.FileKindPhoto, pdfBytes(64), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Check(model.FileKindResume, pngBytes(t, 4, 4), "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckRejectsDeclaredMismatch(t *testing.T) {
	_, err := Check(model.FileKindPhoto, pngBytes(t, 4, 4), "image/jpeg")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Check(model.FileKindPhoto, pngBytes(t, 4, 4), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckRejectsOversize(t *testing.T) {
	_, err := Check(model.FileKindResume, pdfBytes(MaxRawBytes+1), "application/pdf")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCheckRejectsEmpty(t *testing.T) {
	_, err := Check(model.FileKindResume, nil, "application/pdf")
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEncodeInlineRoundTrip(t *testing.T) {
	data := pdfBytes(1024)
	enc, err := EncodeInline(model.FileKindResume, data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", enc.Type)

	decoded, err := Decode(enc.Base64)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncodeInlineResumeOverEncodedCap(t *testing.T) {
	// under 5MB raw but over the inline cap once encoded
	data := pdfBytes(700_000)
	require.Greater(t, base64.StdEncoding.EncodedLen(len(data)), MaxEncodedChars)

	_, err := EncodeInline(model.FileKindResume, data, "application/pdf")
	assert.ErrorIs(t, err, ErrEncodedTooLarge)
}

func TestEncodeInlineResumeAtCap(t *testing.T) {
	// 675,000 bytes encodes to exactly 900,000 characters
	data := pdfBytes(675_000)
	enc, err := EncodeInline(model.FileKindResume, data, "application/pdf")
	require.NoError(t, err)
	assert.Len(t, enc.Base64, MaxEncodedChars)
}

func TestEncodeInlineCompressesLargePhoto(t *testing.T) {
	data := noiseJPEG(t, 1200, 1200, 90)
	require.Greater(t, base64.StdEncoding.EncodedLen(len(data)), MaxEncodedChars)
	require.LessOrEqual(t, len(data), MaxRawBytes)

	enc, err := EncodeInline(model.FileKindPhoto, data, "image/jpeg")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(enc.Base64), MaxEncodedChars)
	assert.Equal(t, "image/jpeg", enc.Type)

	raw, err := Decode(enc.Base64)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Less(t, cfg.Width, 1200)
}

func TestEncodeInlineKeepsSmallPhoto(t *testing.T) {
	data := pngBytes(t, 16, 16)
	enc, err := EncodeInline(model.FileKindPhoto, data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), enc.Base64)
}

func TestDecodeDataURL(t *testing.T) {
	b, err := Decode("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(b))

	_, err = Decode("not base64!")
	assert.Error(t, err)
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(2560, 1280, 1280)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 640, h)

	w, h = fitWithin(100, 50, 1280)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestResizeKeepsColour(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []byte{200, 30, 30, 255})
	}

	out := resize(src, 10, 5)
	assert.Equal(t, image.Rect(0, 0, 10, 5), out.Bounds())
	r, g, b, a := out.At(4, 2).RGBA()
	assert.Equal(t, []uint32{200, 30, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	assert.Same(t, src, resize(src, 40, 20).(*image.RGBA))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("application/pdf"))
	assert.Equal(t, ".png", Extension("image/png"))
}
