// Package progress содержит агрегат прогресса ученика: XP, уровни, серии,
// достижения, значки и ежедневные задания.
// Это ядро бизнес-логики - здесь нет инфраструктурных зависимостей.
package progress

import "sort"

// ══════════════════════════════════════════════════════════════════════════════
// PROJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Project - учебный проект, который выбирает ученик.
type Project string

const (
	// ProjectNone - проект ещё не выбран.
	ProjectNone Project = ""
	// ProjectTicTacToe - игра «крестики-нолики».
	ProjectTicTacToe Project = "tictactoe"
	// ProjectServiceNow - интеграция со ServiceNow.
	ProjectServiceNow Project = "servicenow"
	// ProjectAutomation - автоматизация и боты.
	ProjectAutomation Project = "automation"
	// ProjectMSGraph - Microsoft Graph API.
	ProjectMSGraph Project = "msgraph"
)

// NoneProjectCode - четырёхбуквенный код для невыбранного проекта.
const NoneProjectCode = "NONE"

var projectCodes = map[Project]string{
	ProjectTicTacToe:  "TICT",
	ProjectServiceNow: "SNOW",
	ProjectAutomation: "AUTO",
	ProjectMSGraph:    "MSFT",
}

var projectNames = map[Project]string{
	ProjectTicTacToe:  "Tic-Tac-Toe Game",
	ProjectServiceNow: "ServiceNow Dashboard",
	ProjectAutomation: "Automation Bot",
	ProjectMSGraph:    "Microsoft Graph Explorer",
}

// AllProjects возвращает все допустимые проекты в стабильном порядке.
func AllProjects() []Project {
	return []Project{ProjectTicTacToe, ProjectServiceNow, ProjectAutomation, ProjectMSGraph}
}

// IsValid проверяет, что проект входит в закрытый список.
func (p Project) IsValid() bool {
	_, ok := projectCodes[p]
	return ok
}

// IsSet возвращает true, если проект выбран.
func (p Project) IsSet() bool {
	return p != ProjectNone
}

// Code возвращает четырёхбуквенный код проекта (NONE для невыбранного).
func (p Project) Code() string {
	if c, ok := projectCodes[p]; ok {
		return c
	}
	return NoneProjectCode
}

// DisplayName возвращает человекочитаемое название проекта.
func (p Project) DisplayName() string {
	if n, ok := projectNames[p]; ok {
		return n
	}
	return "No project"
}

// String возвращает строковое представление.
func (p Project) String() string {
	return string(p)
}

// ProjectFromCode восстанавливает проект по коду. Неизвестный код даёт ProjectNone.
func ProjectFromCode(code string) Project {
	for p, c := range projectCodes {
		if c == code {
			return p
		}
	}
	return ProjectNone
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILLS
// ══════════════════════════════════════════════════════════════════════════════

// Skill - имя навыка из фиксированного перечня.
type Skill string

const (
	SkillHTML              Skill = "html"
	SkillCSS               Skill = "css"
	SkillJavaScript        Skill = "javascript"
	SkillGit               Skill = "git"
	SkillAIPrompting       Skill = "ai_prompting"
	SkillDebugging         Skill = "debugging"
	SkillDeployment        Skill = "deployment"
	SkillDatabases         Skill = "databases"
	SkillNetworking        Skill = "networking"
	SkillGamedev           Skill = "gamedev"
	SkillTailwind          Skill = "tailwind"
	SkillAnalytics         Skill = "analytics"
	SkillMicrosoftGraph    Skill = "microsoft_graph"
	SkillAzureAD           Skill = "azure_ad"
	SkillOAuth2            Skill = "oauth2"
	SkillIntuneAPI         Skill = "intune_api"
	SkillDataVisualization Skill = "data_visualization"
)

var allSkills = []Skill{
	SkillHTML, SkillCSS, SkillJavaScript, SkillGit, SkillAIPrompting,
	SkillDebugging, SkillDeployment, SkillDatabases, SkillNetworking,
	SkillGamedev, SkillTailwind, SkillAnalytics, SkillMicrosoftGraph,
	SkillAzureAD, SkillOAuth2, SkillIntuneAPI, SkillDataVisualization,
}

// AllSkills возвращает копию перечня навыков.
func AllSkills() []Skill {
	out := make([]Skill, len(allSkills))
	copy(out, allSkills)
	return out
}

// IsKnown проверяет, что навык входит в перечень.
func (s Skill) IsKnown() bool {
	for _, k := range allSkills {
		if k == s {
			return true
		}
	}
	return false
}

// defaultSkills создаёт карту всех навыков с нулевыми значениями.
func defaultSkills() map[Skill]int {
	m := make(map[Skill]int, len(allSkills))
	for _, s := range allSkills {
		m[s] = 0
	}
	return m
}

// sortedSkills возвращает навыки карты в алфавитном порядке.
func sortedSkills(m map[Skill]int) []Skill {
	out := make([]Skill, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
