package award_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/accolade/internal/domain/award"
	"github.com/okian/accolade/internal/domain/classify"
	"github.com/okian/accolade/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type memRecipients struct {
	mu        sync.Mutex
	rows      map[string]model.Recipient
	failTimes int
	upserts   int
}

func newMemRecipients() *memRecipients {
	return &memRecipients{rows: map[string]model.Recipient{}}
}

func (m *memRecipients) FindRecipient(_ context.Context, competitorID, group string) (model.Recipient, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[competitorID+"|"+group]
	return r, ok, nil
}

func (m *memRecipients) UpsertRecipient(_ context.Context, r model.Recipient) (model.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failTimes != 0 {
		if m.failTimes > 0 {
			m.failTimes--
		}
		return model.Recipient{}, errors.New("database is locked")
	}
	key := r.CompetitorID + "|" + r.Group
	if prev, ok := m.rows[key]; ok {
		r.ID = prev.ID
	}
	m.rows[key] = r
	return r, nil
}

type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	failTimes int
	puts      int
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failTimes != 0 {
		if m.failTimes > 0 {
			m.failTimes--
		}
		return "", errors.New("connection reset")
	}
	if contentType != "image/png" {
		return "", fmt.Errorf("unexpected content type %s", contentType)
	}
	url := "https://cdn.example/" + key
	m.objects[url] = data
	return url, nil
}

func (m *memObjects) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	delete(m.objects, url)
	return nil
}

type memAssets map[string][]byte

func (m memAssets) Read(_ context.Context, path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, errors.New("file does not exist")
	}
	return b, nil
}

type textRenderer struct{}

func (textRenderer) Render(base []byte, text string, _ model.Template) ([]byte, error) {
	return append(append([]byte{}, base...), []byte(":"+text)...), nil
}

func headrestGroup() classify.Group {
	var defs []model.Definition
	for t := 180; t >= 125; t -= 5 {
		defs = append(defs, model.Definition{
			ID:              fmt.Sprintf("h%d", t),
			Name:            fmt.Sprintf("%d+ Club", t),
			Group:           "Certified at the Headrest",
			CompetitionType: "Certified at the Headrest",
			Threshold:       float64(t),
			Operator:        model.OpGreaterOrEqual,
			TemplateKey:     "cath",
			Match:           model.NewMatcher(nil, "Certified at the Headrest"),
		})
	}
	groups, _ := classify.BuildGroups(defs)
	return groups[0]
}

func request(score float64) award.Request {
	return award.Request{
		CompetitorID: "comp-1",
		Group:        headrestGroup(),
		Score:        score,
		Result: model.CompetitionResult{
			ID: "res-1", CompetitorID: "comp-1", MemberID: "700123", Class: "Modified 3",
			Format: "SPL", Score: &score, EventID: "ev-1", SeasonID: "s-2025",
		},
	}
}

func TestIssue(t *testing.T) {
	Convey("Given an issuer over in-memory stores", t, func() {
		recipients := newMemRecipients()
		objects := newMemObjects()
		assets := memAssets{"cath.png": []byte("art")}
		templates := award.NewTemplates([]model.Template{
			{Key: "cath", BaseImagePath: "cath.png", Text: &model.TextStyle{X: 10, Y: 20, FontSize: 30, Color: "#CC0F00"}},
		})
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		issuer := award.NewIssuer(recipients, objects, assets, textRenderer{},
			award.WithClock(func() time.Time { return fixed }),
			award.WithRetry(3, time.Millisecond),
		)
		ctx := context.Background()

		Convey("When a Modified 3 SPL score of 167.2 is issued", func() {
			out := issuer.Issue(ctx, templates, request(167.2))

			Convey("Then the 165 tier is awarded with text 165", func() {
				So(out.Err, ShouldBeNil)
				So(out.Status, ShouldEqual, award.StatusAwarded)
				So(out.Threshold, ShouldEqual, 165)
				So(out.Text, ShouldEqual, "165")

				r := out.Recipient
				So(r.ID, ShouldNotBeEmpty)
				So(r.AchievementID, ShouldEqual, "h165")
				So(r.MemberID, ShouldEqual, "700123")
				So(r.AchievedValue, ShouldEqual, 167.2)
				So(r.ResultID, ShouldEqual, "res-1")
				So(r.ImageGeneratedAt, ShouldEqual, fixed)
				So(r.ImageURL, ShouldStartWith, "https://cdn.example/achievements/")
				So(r.ImageURL, ShouldEndWith, fmt.Sprintf("-%d.png", fixed.UnixMilli()))
				So(string(objects.objects[r.ImageURL]), ShouldEqual, "art:165")
			})

			Convey("And it is issued again", func() {
				again := issuer.Issue(ctx, templates, request(167.2))

				Convey("Then the row is re-rendered in place and the old image removed", func() {
					So(again.Status, ShouldEqual, award.StatusRerendered)
					So(again.Recipient.ID, ShouldEqual, out.Recipient.ID)
					So(len(recipients.rows), ShouldEqual, 1)
					So(len(objects.objects), ShouldEqual, 1)
					So(objects.deleted, ShouldResemble, []string{out.Recipient.ImageURL})
				})
			})

			Convey("And a better score arrives later", func() {
				up := issuer.Issue(ctx, templates, request(171))

				Convey("Then the same row is upgraded", func() {
					So(up.Status, ShouldEqual, award.StatusUpgraded)
					So(up.Recipient.ID, ShouldEqual, out.Recipient.ID)
					So(up.Recipient.AchievementID, ShouldEqual, "h170")
					So(len(recipients.rows), ShouldEqual, 1)
				})
			})

			Convey("And a lower score is issued", func() {
				puts := objects.puts
				down := issuer.Issue(ctx, templates, request(151))

				Convey("Then the held tier is kept and nothing is uploaded", func() {
					So(down.Status, ShouldEqual, award.StatusKept)
					So(down.Threshold, ShouldEqual, 165)
					So(objects.puts, ShouldEqual, puts)
					So(recipients.rows["comp-1|Certified at the Headrest"].AchievementID, ShouldEqual, "h165")
				})
			})
		})

		Convey("When the score is below every tier", func() {
			out := issuer.Issue(ctx, templates, request(124.9))

			Convey("Then nothing happens", func() {
				So(out.Status, ShouldEqual, award.StatusNoQualifying)
				So(errors.Is(out.Err, award.ErrNoQualifyingThreshold), ShouldBeTrue)
				So(len(recipients.rows), ShouldEqual, 0)
				So(objects.puts, ShouldEqual, 0)
			})
		})

		Convey("When the template is unknown", func() {
			out := issuer.Issue(ctx, award.Templates{}, request(150))

			Convey("Then the unit is skipped", func() {
				So(out.Status, ShouldEqual, award.StatusSkipped)
				So(errors.Is(out.Err, award.ErrTemplateNotFound), ShouldBeTrue)
				So(award.SkipReason(out.Err), ShouldEqual, "template_not_found")
			})
		})

		Convey("When the base image is missing", func() {
			delete(assets, "cath.png")
			out := issuer.Issue(ctx, templates, request(150))

			Convey("Then the unit is skipped", func() {
				So(out.Status, ShouldEqual, award.StatusSkipped)
				So(errors.Is(out.Err, award.ErrAssetUnavailable), ShouldBeTrue)
				So(len(recipients.rows), ShouldEqual, 0)
			})
		})

		Convey("When the upload fails transiently", func() {
			objects.failTimes = 2
			out := issuer.Issue(ctx, templates, request(150))

			Convey("Then it is retried and succeeds", func() {
				So(out.Err, ShouldBeNil)
				So(out.Status, ShouldEqual, award.StatusAwarded)
				So(objects.puts, ShouldEqual, 3)
			})
		})

		Convey("When the upload keeps failing", func() {
			objects.failTimes = -1
			out := issuer.Issue(ctx, templates, request(150))

			Convey("Then the unit fails after the retry budget", func() {
				So(out.Status, ShouldEqual, award.StatusFailed)
				So(errors.Is(out.Err, award.ErrStorageWriteFailed), ShouldBeTrue)
				So(objects.puts, ShouldEqual, 3)
				So(len(recipients.rows), ShouldEqual, 0)
			})
		})

		Convey("When the upsert keeps failing", func() {
			recipients.failTimes = -1
			out := issuer.Issue(ctx, templates, request(150))

			Convey("Then the uploaded image is removed again", func() {
				So(out.Status, ShouldEqual, award.StatusFailed)
				So(errors.Is(out.Err, award.ErrStorageWriteFailed), ShouldBeTrue)
				So(recipients.upserts, ShouldEqual, 3)
				So(len(objects.objects), ShouldEqual, 0)
				So(len(objects.deleted), ShouldEqual, 1)
			})
		})

		Convey("When the definition carries a render value", func() {
			req := request(150)
			rv := 1000.0
			for i := range req.Group.Definitions {
				if req.Group.Definitions[i].Threshold == 150 {
					req.Group.Definitions[i].RenderValue = &rv
				}
			}
			out := issuer.Issue(ctx, templates, req)

			Convey("Then the render value is drawn instead of the tier", func() {
				So(out.Threshold, ShouldEqual, 150)
				So(out.Text, ShouldEqual, "1000")
				So(strings.HasSuffix(string(objects.objects[out.Recipient.ImageURL]), ":1000"), ShouldBeTrue)
			})
		})

		Convey("When an award without an image is re-rendered", func() {
			a := model.Achievement{
				Recipient:   model.Recipient{ID: "rec-9", CompetitorID: "comp-2", Group: "Certified at the Headrest", AchievementID: "h140"},
				TemplateKey: "cath",
				Threshold:   140,
			}
			out := issuer.Rerender(ctx, templates, a)

			Convey("Then the row gains an image URL", func() {
				So(out.Err, ShouldBeNil)
				So(out.Status, ShouldEqual, award.StatusRerendered)
				So(out.Text, ShouldEqual, "140")
				So(recipients.rows["comp-2|Certified at the Headrest"].ImageURL, ShouldEqual, out.Recipient.ImageURL)
				So(out.Recipient.ImageGeneratedAt, ShouldEqual, fixed)
				So(objects.deleted, ShouldBeEmpty)
			})
		})
	})
}
