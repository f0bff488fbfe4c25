// Package progresscode кодирует позицию ученика в короткий переносимый код
// вида HAMPTON-TICT-W3M2-KZCJ-EYJW и восстанавливает по нему состояние.
//
// Код намеренно с потерями: из него восстанавливаются только проект и позиция.
// XP, уровень и пройденные единицы при восстановлении вычисляются заново в
// предположении линейного прохождения программы.
package progresscode

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
)

// Prefix - обязательный первый сегмент кода.
const Prefix = "HAMPTON"

const (
	segmentCount   = 5
	fragmentLength = 12
	checksumLength = 4
	payloadLength  = 4
)

var (
	weeklyChunk = regexp.MustCompile(`^W(\d+)M(\d+)$`)
	dailyChunk  = regexp.MustCompile(`^D(\d+)L(\d+)$`)
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Position - позиция, закодированная в CHUNK1.
type Position struct {
	Daily  bool `json:"daily"`
	Day    int  `json:"day,omitempty"`
	Lesson int  `json:"lesson,omitempty"`
	Week   int  `json:"week,omitempty"`
	Module int  `json:"module,omitempty"`
}

// String возвращает CHUNK1: D{day}L{lesson} или W{week}M{module}.
func (p Position) String() string {
	if p.Daily {
		return fmt.Sprintf("D%dL%d", p.Day, p.Lesson)
	}
	return fmt.Sprintf("W%dM%d", p.Week, p.Module)
}

// Decoded - разобранный код.
type Decoded struct {
	// Code - нормализованный код (верхний регистр, без пробелов).
	Code string `json:"code"`
	// ProjectCode - сегмент PROJ как есть.
	ProjectCode string `json:"projectCode"`
	// Project - проект по коду; неизвестный код даёт ProjectNone.
	Project  progress.Project `json:"project"`
	Position Position         `json:"position"`
	Checksum string           `json:"checksum"`
	Payload  string           `json:"payload"`
}

// summary - сводка состояния, из которой строится фрагмент.
// Порядок полей фиксирован: он определяет байты JSON и, значит, контрольную сумму.
type summary struct {
	P string `json:"p"`
	W int    `json:"w"`
	M int    `json:"m"`
	D int    `json:"d,omitempty"`
	X int    `json:"x"`
	A int    `json:"a"`
	C int    `json:"c"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CODEC
// ══════════════════════════════════════════════════════════════════════════════

// Codec кодирует и разбирает коды прогресса для заданной программы.
type Codec struct {
	curriculum progress.Curriculum
	strict     bool
}

// Option настраивает Codec.
type Option func(*Codec)

// WithCurriculum задаёт программу для проверки позиций и восстановления.
func WithCurriculum(c progress.Curriculum) Option {
	return func(cd *Codec) {
		if c != nil {
			cd.curriculum = c
		}
	}
}

// WithStrictChecksum включает или выключает проверку CHECKSUM4/PAYLOAD4 в Decode.
func WithStrictChecksum(strict bool) Option {
	return func(cd *Codec) { cd.strict = strict }
}

// New создаёт Codec. По умолчанию: стандартная программа и строгая проверка.
func New(opts ...Option) *Codec {
	c := &Codec{curriculum: progress.StandardCurriculum{}, strict: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strict возвращает true, если Decode проверяет контрольную сумму.
func (c *Codec) Strict() bool {
	return c.strict
}

// Curriculum возвращает программу кодека.
func (c *Codec) Curriculum() progress.Curriculum {
	return c.curriculum
}

// Encode строит код для состояния.
func (c *Codec) Encode(s *progress.State) string {
	projectCode := s.SelectedProject.Code()
	fragment := fragmentOf(summarize(s))

	pos := Position{Week: s.CurrentWeek, Module: s.CurrentModule}
	if s.IsDailyMode() {
		pos = Position{Daily: true, Day: s.CurrentDay, Lesson: s.CurrentLesson}
	}

	return strings.Join([]string{
		Prefix,
		projectCode,
		pos.String(),
		head(Checksum(fragment), checksumLength),
		head(fragment, payloadLength),
	}, "-")
}

// Parse разбирает код без проверки контрольной суммы.
func (c *Codec) Parse(code string) (Decoded, error) {
	normalized := normalize(code)
	parts := strings.Split(normalized, "-")
	if len(parts) != segmentCount || parts[0] != Prefix {
		return Decoded{}, shared.WrapError("progresscode", "Parse", shared.ErrInvalidCodeFormat,
			fmt.Sprintf("expected %s-PROJ-CHUNK-CHECK-DATA, got %d segments", Prefix, len(parts)), nil)
	}

	pos, err := parsePosition(parts[2])
	if err != nil {
		return Decoded{}, err
	}
	if err := c.checkPosition(pos); err != nil {
		return Decoded{}, err
	}

	return Decoded{
		Code:        normalized,
		ProjectCode: parts[1],
		Project:     progress.ProjectFromCode(parts[1]),
		Position:    pos,
		Checksum:    parts[3],
		Payload:     parts[4],
	}, nil
}

// Decode разбирает код и, в строгом режиме, проверяет контрольную сумму.
func (c *Codec) Decode(code string) (Decoded, error) {
	d, err := c.Parse(code)
	if err != nil {
		return Decoded{}, err
	}
	if c.strict {
		if err := Verify(d); err != nil {
			return Decoded{}, err
		}
	}
	return d, nil
}

func (c *Codec) checkPosition(p Position) error {
	cur := c.curriculum
	if p.Daily {
		if p.Day < 1 || p.Day > cur.TotalDays() {
			return positionError("day %d is outside 1..%d", p.Day, cur.TotalDays())
		}
		if n := cur.LessonsPerDay(p.Day); p.Lesson >= n {
			return positionError("lesson %d is outside 0..%d for day %d", p.Lesson, n-1, p.Day)
		}
		return nil
	}
	if p.Week < 1 || p.Week > cur.TotalWeeks() {
		return positionError("week %d is outside 1..%d", p.Week, cur.TotalWeeks())
	}
	if p.Module < 1 || p.Module > cur.ModulesPerWeek() {
		return positionError("module %d is outside 1..%d", p.Module, cur.ModulesPerWeek())
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECKSUM
// ══════════════════════════════════════════════════════════════════════════════

// Verify сверяет CHECKSUM4 и PAYLOAD4 с фрагментом, вычисленным по сегменту PROJ.
// Фрагмент покрывает только начало сводки ({"p":"XXXX"), поэтому проверка
// подтверждает проект и форму кода, но не позицию.
func Verify(d Decoded) error {
	fragment := fragmentOf(summary{P: d.ProjectCode})
	wantChecksum := head(Checksum(fragment), checksumLength)
	wantPayload := head(fragment, payloadLength)
	if d.Checksum != wantChecksum || d.Payload != wantPayload {
		return shared.WrapError("progresscode", "Verify", shared.ErrChecksumMismatch,
			fmt.Sprintf("code %s does not match project %s", d.Code, d.ProjectCode), nil)
	}
	return nil
}

// Checksum - хеш фрагмента в base36 в верхнем регистре.
func Checksum(fragment string) string {
	return strings.ToUpper(strconv.FormatInt(progress.StringHash(fragment), 36))
}

// Fragment возвращает 12-символьный фрагмент, которым код подписан для проекта
// с четырёхбуквенным кодом projectCode.
func Fragment(projectCode string) string {
	return fragmentOf(summary{P: projectCode})
}

// fragmentOf сериализует сводку в JSON, кодирует в base64, оставляет только
// буквы и цифры и берёт первые 12 символов в верхнем регистре.
func fragmentOf(sm summary) string {
	raw, _ := json.Marshal(sm)
	enc := base64.StdEncoding.EncodeToString(raw)
	var b strings.Builder
	for _, r := range enc {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(head(b.String(), fragmentLength))
}

func summarize(s *progress.State) summary {
	completed := len(s.CompletedModules)
	if s.IsDailyMode() {
		completed = len(s.CompletedLessons)
	}
	return summary{
		P: s.SelectedProject.Code(),
		W: s.CurrentWeek,
		M: s.CurrentModule,
		D: s.CurrentDay,
		X: s.XP / 100,
		A: len(s.Achievements),
		C: completed,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func normalize(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

func parsePosition(chunk string) (Position, error) {
	if m := weeklyChunk.FindStringSubmatch(chunk); m != nil {
		w, errW := strconv.Atoi(m[1])
		mod, errM := strconv.Atoi(m[2])
		if errW != nil || errM != nil {
			return Position{}, positionError("position %q is too large", chunk)
		}
		return Position{Week: w, Module: mod}, nil
	}
	if m := dailyChunk.FindStringSubmatch(chunk); m != nil {
		d, errD := strconv.Atoi(m[1])
		l, errL := strconv.Atoi(m[2])
		if errD != nil || errL != nil {
			return Position{}, positionError("position %q is too large", chunk)
		}
		return Position{Daily: true, Day: d, Lesson: l}, nil
	}
	return Position{}, positionError("position %q is neither W<n>M<n> nor D<n>L<n>", chunk)
}

func positionError(format string, args ...any) error {
	return shared.WrapError("progresscode", "Parse", shared.ErrInvalidCodePosition, fmt.Sprintf(format, args...), nil)
}

func head(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// ══════════════════════════════════════════════════════════════════════════════
// PACKAGE-LEVEL HELPERS (standard curriculum, strict checksum)
// ══════════════════════════════════════════════════════════════════════════════

var defaultCodec = New()

// Encode кодирует состояние кодеком по умолчанию.
func Encode(s *progress.State) string {
	return defaultCodec.Encode(s)
}

// Decode разбирает и проверяет код кодеком по умолчанию.
func Decode(code string) (Decoded, error) {
	return defaultCodec.Decode(code)
}

// Parse разбирает код кодеком по умолчанию без проверки контрольной суммы.
func Parse(code string) (Decoded, error) {
	return defaultCodec.Parse(code)
}
