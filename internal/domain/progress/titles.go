package progress

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TITLES
// Каноническая таблица: 50 уровней. Уровни выше 50 сохраняют последний титул.
// ══════════════════════════════════════════════════════════════════════════════

// Title - титул уровня.
type Title struct {
	Level    int    `json:"level"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// TitleDisplay - титул вместе с оформлением.
type TitleDisplay struct {
	Title
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Full  string `json:"full"`
}

// NextTitleInfo - следующий титул и сколько уровней до него.
type NextTitleInfo struct {
	Title
	LevelsToGo int `json:"levelsToGo"`
}

var levelTitles = []Title{
	{1, "Keyboard Tourist", "Just visiting the keys"},
	{2, "Copy-Paste Rookie", "Ctrl+C, Ctrl+V is life"},
	{3, "Semicolon Forgetter", "Why won't this compile?"},
	{4, "Stack Overflow Visitor", "Professional searcher"},
	{5, "Bug Creator", "It's not a bug, it's a feature!"},
	{6, "Code Cadet", "Learning the ways"},
	{7, "Variable Wrangler", "let x = 'getting better'"},
	{8, "Loop Apprentice", "while(learning) { improve() }"},
	{9, "Function Caller", "Starting to make sense"},
	{10, "Array Ranger", "[0] to [hero]"},
	{11, "Bug Squasher", "Debugging with purpose"},
	{12, "Logic Builder", "if(skill > 10) return 'nice!'"},
	{13, "Code Crafter", "Creating with intention"},
	{14, "Syntax Soldier", "Fighting the good fight"},
	{15, "Algorithm Scout", "Finding better ways"},
	{16, "Data Dancer", "Graceful with the bits"},
	{17, "Promise Keeper", "async/await master"},
	{18, "Git Guardian", "Commit message perfectionist"},
	{19, "Stack Slayer", "Full stack capable"},
	{20, "Code Conductor", "Orchestrating solutions"},
	{21, "Binary Bard", "Speaking in 1s and 0s"},
	{22, "Cache Commander", "Performance optimizer"},
	{23, "Regex Wizard", "/^pro$/"},
	{24, "API Alchemist", "Turning endpoints to gold"},
	{25, "Database Dragon", "Query master supreme"},
	{26, "Kernel Knight", "System level warrior"},
	{27, "Quantum Coder", "Superposition specialist"},
	{28, "Neural Navigator", "AI whisperer"},
	{29, "Cyber Sage", "Wisdom in every line"},
	{30, "Code Sovereign", "Ruler of the digital realm"},
	{31, "Binary Buddha", "Enlightened developer"},
	{32, "Silicon Sorcerer", "Magic in the machine"},
	{33, "Matrix Architect", "Building digital worlds"},
	{34, "Quantum Overlord", "Master of all states"},
	{35, "Digital Deity", "Creator of universes"},
	{36, "Code Cosmic", "Beyond mortal understanding"},
	{37, "Infinity Engineer", "No limits remain"},
	{38, "Reality Hacker", "Bending the rules"},
	{39, "Universe Compiler", "Building existence"},
	{40, "The One", "You are the code"},
	{41, "Neo", "You see the Matrix"},
	{42, "Answer to Everything", "42"},
	{43, "Turing Complete", "Computationally supreme"},
	{44, "Von Neumann", "Self-replicating excellence"},
	{45, "Babbage Reborn", "Father of computing"},
	{46, "Lovelace Legacy", "First programmer's heir"},
	{47, "Hopper's Hope", "Bug-free existence"},
	{48, "Ritchie's Revenge", "C the world differently"},
	{49, "Torvalds Titan", "Open source hero"},
	{50, "Hampton Honorary", "Mr. Hampton would be proud"},
}

// Особые титулы за достижения.
var specialTitles = map[string]Title{
	"speed_demon":         {Title: "Speed Coder", Subtitle: "Faster than light"},
	"marathon_runner":     {Title: "Persistence Personified", Subtitle: "Never gives up"},
	"night_owl":           {Title: "Midnight Hacker", Subtitle: "Codes in dreams"},
	"early_bird":          {Title: "Dawn Developer", Subtitle: "Rise and code"},
	"week_warrior":        {Title: "Week Warrior", Subtitle: "Seven days strong"},
	"halfway_hero":        {Title: "Halfway Hero", Subtitle: "The journey continues"},
	"graduation_day":      {Title: "Graduate", Subtitle: "Class of Hampton"},
	"html_master":         {Title: "Tag Master", Subtitle: "<title>Expert</title>"},
	"css_wizard":          {Title: "Style Sorcerer", Subtitle: "Making it pretty"},
	"js_ninja":            {Title: "JavaScript Ninja", Subtitle: "() => 'lethal'"},
	"git_guru":            {Title: "Version Virtuoso", Subtitle: "git commit -m 'perfect'"},
	"ai_whisperer":        {Title: "AI Whisperer", Subtitle: "Prompt perfectionist"},
	"bug_squasher":        {Title: "Debugger Supreme", Subtitle: "No bug survives"},
	"perfect_week":        {Title: "Perfectionist", Subtitle: "Flawless execution"},
	"helper":              {Title: "Code Mentor", Subtitle: "Helping others grow"},
	"contributor":         {Title: "Open Source Hero", Subtitle: "Giving back"},
	"dashboard_complete":  {Title: "Dashboard Designer", Subtitle: "Data visualization pro"},
	"blog_complete":       {Title: "Content Creator", Subtitle: "Words and code"},
	"automation_complete": {Title: "Bot Builder", Subtitle: "Automation master"},
}

// Уровни, при достижении которых титул объявляется отдельно.
var significantLevels = []int{1, 5, 10, 15, 20, 25, 30, 35, 40, 42, 50}

// Сообщения по порогам уровня, по возрастанию.
var levelMessages = []struct {
	level int
	text  string
}{
	{1, "Welcome, brave soul! Your journey begins now."},
	{5, "You're getting the hang of this! Keep going!"},
	{10, "Double digits! You're officially a coder now."},
	{15, "Impressive progress! The code is strong with this one."},
	{20, "You've reached expert level! Time to build amazing things."},
	{25, "Elite status achieved! You're among the coding legends."},
	{30, "Sovereign of code! You command the digital realm."},
	{35, "Legendary! Songs will be sung of your debugging skills."},
	{40, "You are The One. The Matrix has no secrets from you."},
	{45, "Beyond legendary! You've transcended normal coding."},
	{50, "Mr. Hampton would be incredibly proud of your achievement!"},
}

// TitleForLevel возвращает наивысший достигнутый титул.
func TitleForLevel(level int) Title {
	best := levelTitles[0]
	for _, t := range levelTitles {
		if level < t.Level {
			break
		}
		best = t
	}
	return best
}

// NextTitle возвращает следующий титул после level.
func NextTitle(level int) NextTitleInfo {
	for _, t := range levelTitles {
		if t.Level > level {
			return NextTitleInfo{Title: t, LevelsToGo: t.Level - level}
		}
	}
	return NextTitleInfo{Title: Title{Title: "Maximum Level", Subtitle: "You've reached the peak!"}}
}

// TitleColor возвращает цвет титула по диапазону уровня.
func TitleColor(level int) string {
	switch {
	case level <= 5:
		return "#808080"
	case level <= 10:
		return "#10B981"
	case level <= 15:
		return "#3B82F6"
	case level <= 20:
		return "#8B5CF6"
	case level <= 25:
		return "#F59E0B"
	case level <= 30:
		return "#EF4444"
	case level <= 35:
		return "#FFD700"
	case level <= 40:
		return "#E11D48"
	case level <= 45:
		return "#14B8A6"
	}
	return "#FF00FF"
}

// TitleIcon возвращает значок титула по диапазону уровня.
func TitleIcon(level int) string {
	switch {
	case level <= 5:
		return "🥚"
	case level <= 10:
		return "🐣"
	case level <= 15:
		return "🐥"
	case level <= 20:
		return "🦅"
	case level <= 25:
		return "🚀"
	case level <= 30:
		return "⭐"
	case level <= 35:
		return "💎"
	case level <= 40:
		return "👑"
	case level <= 45:
		return "🌟"
	}
	return "🏆"
}

// DisplayTitle собирает титул с оформлением.
func DisplayTitle(level int) TitleDisplay {
	t := TitleForLevel(level)
	t.Level = level
	icon := TitleIcon(level)
	return TitleDisplay{
		Title: t,
		Icon:  icon,
		Color: TitleColor(level),
		Full:  icon + " " + t.Title,
	}
}

// LevelMessage возвращает напутствие для уровня.
func LevelMessage(level int) string {
	msg := "Keep coding, keep growing!"
	for _, m := range levelMessages {
		if level >= m.level {
			msg = m.text
		}
	}
	return msg
}

// ShouldAnnounceTitle возвращает true, если переход пересёк значимый уровень.
func ShouldAnnounceTitle(oldLevel, newLevel int) bool {
	for _, l := range significantLevels {
		if oldLevel < l && newLevel >= l {
			return true
		}
	}
	return false
}

// SpecialTitle возвращает особый титул за достижение.
func SpecialTitle(achievementID string) (Title, bool) {
	t, ok := specialTitles[achievementID]
	return t, ok
}
