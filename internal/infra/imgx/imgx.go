package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"

	_ "image/gif" // 注册 GIF 解码器（只取第一帧）

	"golang.org/x/image/draw"
)

// JPEGQuality 是页面图片写入 PDF 时的压缩质量。
const JPEGQuality = 90

// Open 读取并解码 path 处的图片（PNG/JPEG/GIF）。
func Open(path string) (image.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Decode 从字节解码图片，并校验尺寸。
func Decode(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, errors.New("图片为空")
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r := img.Bounds()
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("图片尺寸无效：%dx%d", r.Dx(), r.Dy())
	}
	return img, nil
}

// Normalize 把任意图片整理为 OCR 与 PDF 都能直接使用的形态：
//
// - 透明通道铺到白底上（JPEG 不支持 alpha，直接丢弃会变成黑底）
// - 最长边超过 maxSide 时等比缩小（maxSide<=0 表示不限制）
// - 输出坐标原点固定为 (0,0)
func Normalize(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG 把图片编码为 JPEG。
func EncodeJPEG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncodePNG 把图片编码为 PNG（OCR 输入用，无损）。
func EncodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
