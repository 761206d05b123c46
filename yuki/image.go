package yuki

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type Image struct {
	Width int
	Height int
	Bytes []byte
}

func NewImage(width int, height int) Image {
	return Image{
		Width: width,
		Height: height,
		Bytes: make([]byte, 3*width*height),
	}
}

func ImageFromBytes(width int, height int, bytes []byte) Image {
	return Image{
		Width: width,
		Height: height,
		Bytes: bytes,
	}
}

func ImageFromJPGReader(rd io.Reader) (Image, error) {
	im, err := jpeg.Decode(rd)
	if err != nil {
		return Image{}, err
	}
	return ImageFromGoImage(im), nil
}

func ImageFromPNGReader(rd io.Reader) (Image, error) {
	im, err := png.Decode(rd)
	if err != nil {
		return Image{}, err
	}
	return ImageFromGoImage(im), nil
}

// Decode an image given its format ("jpeg" or "png").
func DecodeImage(format string, rd io.Reader) (Image, error) {
	if format == "jpeg" {
		return ImageFromJPGReader(rd)
	} else if format == "png" {
		return ImageFromPNGReader(rd)
	}
	return Image{}, fmt.Errorf("unknown image format %s", format)
}

func ImageFromGoImage(im image.Image) Image {
	rect := im.Bounds()
	width := rect.Dx()
	height := rect.Dy()
	bytes := make([]byte, width*height*3)
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			r, g, b, _ := im.At(i+rect.Min.X, j+rect.Min.Y).RGBA()
			bytes[(j*width+i)*3+0] = uint8(r >> 8)
			bytes[(j*width+i)*3+1] = uint8(g >> 8)
			bytes[(j*width+i)*3+2] = uint8(b >> 8)
		}
	}
	return Image{
		Width: width,
		Height: height,
		Bytes: bytes,
	}
}

func ImageFromFile(fname string) (Image, error) {
	file, err := os.Open(fname)
	if err != nil {
		return Image{}, err
	}
	defer file.Close()
	format := "jpeg"
	if Ext(fname) == "png" {
		format = "png"
	}
	return DecodeImage(format, file)
}

func (im Image) AsImage() image.Image {
	pixbuf := make([]byte, im.Width*im.Height*4)
	j := 0
	channels := 0
	for i := range im.Bytes {
		pixbuf[j] = im.Bytes[i]
		j++
		channels++
		if channels == 3 {
			pixbuf[j] = 255
			j++
			channels = 0
		}
	}
	img := &image.RGBA{
		Pix: pixbuf,
		Stride: im.Width * 4,
		Rect: image.Rect(0, 0, im.Width, im.Height),
	}
	return img
}

func (im Image) AsJPG() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, im.AsImage(), nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (im Image) AsPNG() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, im.AsImage()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Resize scales the image to width x height.
// The model input is fixed-size so all dataset images pass through here.
func (im Image) Resize(width int, height int) Image {
	if im.Width == width && im.Height == height {
		return im.Copy()
	}
	src := im.AsImage()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return ImageFromGoImage(dst)
}

func (im Image) SetRGB(i int, j int, color [3]uint8) {
	if i < 0 || i >= im.Width || j < 0 || j >= im.Height {
		return
	}
	for channel := 0; channel < 3; channel++ {
		im.Bytes[(j*im.Width+i)*3+channel] = color[channel]
	}
}

func (im Image) GetRGB(i int, j int) [3]uint8 {
	var color [3]uint8
	for channel := 0; channel < 3; channel++ {
		color[channel] = im.Bytes[(j*im.Width+i)*3+channel]
	}
	return color
}

func (im Image) FillRectangle(left, top, right, bottom int, color [3]uint8) {
	for i := left; i < right; i++ {
		for j := top; j < bottom; j++ {
			im.SetRGB(i, j, color)
		}
	}
}

func (im Image) Copy() Image {
	bytes := make([]byte, len(im.Bytes))
	copy(bytes, im.Bytes)
	return Image{
		Width: im.Width,
		Height: im.Height,
		Bytes: bytes,
	}
}

type RichText struct {
	Text string
	X int
	Y int
}

// DrawText renders text over the image, e.g. the predicted class label.
func (im Image) DrawText(text RichText) {
	c := color.RGBA{255, 255, 255, 255}
	if text.X == 0 && text.Y == 0 {
		text.X = 5
		text.Y = 5
	}
	text.Y += 7 // center since height is 13
	p := fixed.P(text.X, text.Y)
	d := &font.Drawer{
		Dst: im,
		Src: image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot: p,
	}
	rect, _ := d.BoundString(text.Text)
	sx := Clip(rect.Min.X.Round()-3, 0, im.Width)
	sy := Clip(rect.Min.Y.Round()-3, 0, im.Height)
	ex := Clip(rect.Max.X.Round()+3, 0, im.Width)
	ey := Clip(rect.Max.Y.Round()+3, 0, im.Height)
	im.FillRectangle(sx, sy, ex, ey, [3]uint8{0, 0, 0})
	d.DrawString(text.Text)
}

// for image.Image

func (im Image) Set(i int, j int, c color.Color) {
	r, g, b, _ := c.RGBA()
	r = r >> 8
	g = g >> 8
	b = b >> 8
	im.SetRGB(i, j, [3]uint8{uint8(r), uint8(g), uint8(b)})
}

func (im Image) At(i int, j int) color.Color {
	c := im.GetRGB(i, j)
	return color.RGBA{c[0], c[1], c[2], 255}
}

func (im Image) ColorModel() color.Model {
	return color.RGBAModel
}

func (im Image) Bounds() image.Rectangle {
	return image.Rectangle{image.Point{0, 0}, image.Point{im.Width, im.Height}}
}
