package report

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/ivlev/frame2report/internal/events"
	"github.com/ivlev/frame2report/internal/timecode"
)

// Layout is the result of BuildBlocks.
type Layout struct {
	Blocks       []Block
	Embedded     []string // Images placed in the document
	Placeholders int      // Images replaced by a placeholder line
}

type BlockKind int

const (
	Heading BlockKind = iota
	Paragraph
	Picture
	Code // QR code encoding Text
)

// Block is one layout element handed to a Writer.
type Block struct {
	Kind    BlockKind
	Level   int     // Heading level, 0 = title
	Text    string  // Heading, paragraph or QR payload
	Path    string  // Picture file
	WidthMM float64 // Picture display width
}

// BuildBlocks lays out the groups in order: per video a level-1 heading, then
// per finding a numbered level-2 heading, its time, its description and its
// image. Unreadable images become placeholder paragraphs.
func BuildBlocks(groups []events.Group, tmpl *Template) Layout {
	var lay Layout

	if tmpl.Title != "" {
		lay.Blocks = append(lay.Blocks, Block{Kind: Heading, Level: 0, Text: tmpl.Title})
	}

	for _, g := range groups {
		lay.Blocks = append(lay.Blocks, Block{Kind: Heading, Level: 1, Text: fmt.Sprintf(tmpl.VideoHeading, g.Name)})

		for i, r := range g.Records {
			lay.Blocks = append(lay.Blocks,
				Block{Kind: Heading, Level: 2, Text: fmt.Sprintf(tmpl.FindingHeading, i+1)},
				Block{Kind: Paragraph, Text: fmt.Sprintf(tmpl.TimeLine, timecode.Format(r.Timestamp))},
			)
			if r.Description != "" {
				lay.Blocks = append(lay.Blocks, Block{Kind: Paragraph, Text: fmt.Sprintf(tmpl.DescriptionLine, r.Description)})
			}
			if r.ImagePath != "" {
				if err := probeImage(r.ImagePath); err != nil {
					lay.Blocks = append(lay.Blocks, Block{Kind: Paragraph, Text: fmt.Sprintf(tmpl.MissingImage, err)})
					lay.Placeholders++
				} else {
					lay.Blocks = append(lay.Blocks, Block{Kind: Picture, Path: r.ImagePath, WidthMM: tmpl.ImageWidthMM})
					lay.Embedded = append(lay.Embedded, r.ImagePath)
				}
			}
			if tmpl.QRCodes {
				lay.Blocks = append(lay.Blocks, Block{Kind: Code, Text: fmt.Sprintf("%s @ %s", g.Name, timecode.Format(r.Timestamp))})
			}
		}
	}
	return lay
}

func probeImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}
