package services

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// AvatarService renders deterministic initials avatars for new users.
type AvatarService interface {
	GenerateUserAvatar(user *types.User) (string, error)
}

type avatarService struct {
	log         *logger.Logger
	uploadsRoot string

	bgColors []color.NRGBA
	fontFace font.Face
}

var defaultAvatarColors = []color.NRGBA{
	{R: 0x1F, G: 0x77, B: 0xB4, A: 0xFF},
	{R: 0xFF, G: 0x7F, B: 0x0E, A: 0xFF},
	{R: 0x2C, G: 0xA0, B: 0x2C, A: 0xFF},
	{R: 0xD6, G: 0x27, B: 0x28, A: 0xFF},
	{R: 0x94, G: 0x67, B: 0xBD, A: 0xFF},
	{R: 0x8C, G: 0x56, B: 0x4B, A: 0xFF},
	{R: 0x17, G: 0xBE, B: 0xCF, A: 0xFF},
}

func NewAvatarService(log *logger.Logger, uploadsRoot string) AvatarService {
	serviceLog := log.With("service", "AvatarService")

	face := font.Face(basicfont.Face7x13)
	if fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT")); fontPath != "" {
		loaded, err := loadFontFace(fontPath, 96)
		if err != nil {
			serviceLog.Warn("could not load avatar font, using builtin face", "font", fontPath, "error", err)
		} else {
			face = loaded
		}
	}

	return &avatarService{
		log:         serviceLog,
		uploadsRoot: uploadsRoot,
		bgColors:    defaultAvatarColors,
		fontFace:    face,
	}
}

// GenerateUserAvatar renders a 256px circle avatar with the user's initials
// and writes it under the uploads dir, returning its web path.
func (s *avatarService) GenerateUserAvatar(user *types.User) (string, error) {
	const size = 256

	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := s.bgColors[pickColorIndex(user.Username, len(s.bgColors))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(user.FirstName, user.LastName, user.Username)
	dc.SetFontFace(s.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2
	dc.SetColor(color.White)
	dc.DrawString(initials, cx-tw/2, cy+th/2)

	name := fmt.Sprintf("avatar_%d_%d.png", user.ID, time.Now().UnixMilli())
	local := filepath.Join(s.uploadsRoot, name)
	if err := dc.SavePNG(local); err != nil {
		return "", fmt.Errorf("save avatar png: %w", err)
	}
	return uploadsPrefix + name, nil
}

func loadFontFace(path string, points float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}

func pickColorIndex(seed string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return int(h.Sum32() % uint32(n))
}

func computeInitials(first, last, fallback string) string {
	var b strings.Builder
	if first != "" {
		b.WriteString(strings.ToUpper(first[:1]))
	}
	if last != "" {
		b.WriteString(strings.ToUpper(last[:1]))
	}
	if b.Len() == 0 && fallback != "" {
		b.WriteString(strings.ToUpper(fallback[:1]))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}
