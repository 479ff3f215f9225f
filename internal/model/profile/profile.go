package profile

import "strings"

// Profile is the read-only knowledge base the assistant answers from.
type Profile struct {
	Name        string       `json:"name" yaml:"name"`
	Title       string       `json:"title" yaml:"title"`
	Location    string       `json:"location" yaml:"location"`
	Description string       `json:"description" yaml:"description"`
	Website     string       `json:"website,omitempty" yaml:"website"`
	Experience  []Experience `json:"experience" yaml:"experience"`
	Languages   []Skill      `json:"languages" yaml:"languages"`
	Projects    []Project    `json:"projects" yaml:"projects"`
	SocialLinks []SocialLink `json:"socialLinks" yaml:"socialLinks"`
	Contact     Contact      `json:"contact" yaml:"contact"`
	Education   []Education  `json:"education,omitempty" yaml:"education"`
}

// Experience 工作经历
type Experience struct {
	Role        string   `json:"role" yaml:"role"`
	Company     string   `json:"company" yaml:"company"`
	Period      string   `json:"period" yaml:"period"`
	Description string   `json:"description" yaml:"description"`
	Skills      []string `json:"skills,omitempty" yaml:"skills"`
}

// Skill 技能条目
type Skill struct {
	Name string `json:"name" yaml:"name"`
}

// Project 项目作品
type Project struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Tech        []string `json:"tech,omitempty" yaml:"tech"`
}

// SocialLink 社交链接，Icon 为链接类型（linkedin、github 等）
type SocialLink struct {
	Icon string `json:"icon" yaml:"icon"`
	Href string `json:"href" yaml:"href"`
}

// Contact 联系方式
type Contact struct {
	Email string `json:"email,omitempty" yaml:"email"`
}

// Education 教育背景
type Education struct {
	Degree string `json:"degree" yaml:"degree"`
	School string `json:"school" yaml:"school"`
	Year   string `json:"year" yaml:"year"`
}

// FirstName returns the leading word of Name.
func (p Profile) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SkillNames lists the skill names in declaration order.
func (p Profile) SkillNames() []string {
	names := make([]string, 0, len(p.Languages))
	for _, skill := range p.Languages {
		names = append(names, skill.Name)
	}
	return names
}

// SocialHref finds the link registered under icon.
func (p Profile) SocialHref(icon string) (string, bool) {
	for _, link := range p.SocialLinks {
		if strings.EqualFold(link.Icon, icon) {
			return link.Href, true
		}
	}
	return "", false
}

// Seed provides the default profile shipped with the assistant.
func Seed() Profile {
	return Profile{
		Name:        "Alex Johnson",
		Title:       "Full Stack Developer",
		Location:    "San Francisco, CA",
		Description: "I build fast, accessible web applications and the services behind them.",
		Website:     "https://alexjohnson.dev",
		Experience: []Experience{
			{
				Role:        "Senior Software Engineer",
				Company:     "TechCorp",
				Period:      "2022 - Present",
				Description: "Leading the web platform team and its migration to micro-frontends.",
				Skills:      []string{"React", "TypeScript", "AWS"},
			},
			{
				Role:        "Full Stack Developer",
				Company:     "StartupXYZ",
				Period:      "2020 - 2022",
				Description: "Built the customer dashboard and billing services from scratch.",
				Skills:      []string{"Node.js", "PostgreSQL", "Docker"},
			},
			{
				Role:        "Frontend Developer",
				Company:     "Digital Agency",
				Period:      "2019 - 2020",
				Description: "Delivered marketing sites and design systems for agency clients.",
				Skills:      []string{"JavaScript", "CSS", "Figma"},
			},
		},
		Languages: []Skill{
			{Name: "JavaScript"},
			{Name: "TypeScript"},
			{Name: "React"},
			{Name: "HTML5"},
			{Name: "CSS3"},
			{Name: "Python"},
		},
		Projects: []Project{
			{
				Title:       "E-Commerce Platform",
				Description: "A headless storefront with real-time inventory and Stripe checkout.",
				Tech:        []string{"React", "Node.js", "MongoDB"},
			},
			{
				Title:       "Task Management App",
				Description: "Collaborative boards with live presence and offline sync.",
				Tech:        []string{"TypeScript", "Redux", "WebSockets"},
			},
			{
				Title:       "Weather Dashboard",
				Description: "Forecast visualizations backed by a caching API proxy.",
				Tech:        []string{"React", "D3", "Redis"},
			},
		},
		SocialLinks: []SocialLink{
			{Icon: "github", Href: "https://github.com/alexjohnson"},
			{Icon: "linkedin", Href: "https://linkedin.com/in/alexjohnson"},
			{Icon: "twitter", Href: "https://twitter.com/alexjohnson"},
		},
		Contact: Contact{Email: "alex.johnson@example.com"},
	}
}
