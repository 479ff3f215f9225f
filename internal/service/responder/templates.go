package responder

import (
	"github.com/zhouzirui/profile-assistant/backend/internal/analysis/intent"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
)

// TemplateStore maps (personality, intent) to template variants.
// Templates use {placeholder} fields that are filled from the profile.
type TemplateStore struct {
	shared        map[intent.Label][]string
	byPersonality map[chat.Personality]map[intent.Label]string
}

// NewTemplateStore returns the built-in template set.
func NewTemplateStore() *TemplateStore {
	store := &TemplateStore{
		shared:        make(map[intent.Label][]string),
		byPersonality: make(map[chat.Personality]map[intent.Label]string),
	}
	store.loadDefaultTemplates()
	return store
}

// Lookup resolves the candidate templates for an intent. Personality
// independent intents ignore p; personalities without a dedicated template
// fall back to the professional one.
func (s *TemplateStore) Lookup(p chat.Personality, label intent.Label) ([]string, bool) {
	if variants, ok := s.shared[label]; ok {
		return append([]string(nil), variants...), true
	}
	if tpl, ok := s.byPersonality[p][label]; ok {
		return []string{tpl}, true
	}
	if tpl, ok := s.byPersonality[chat.Professional][label]; ok {
		return []string{tpl}, true
	}
	return nil, false
}

// Shared reports whether label is defined once for all personalities.
func (s *TemplateStore) Shared(label intent.Label) bool {
	_, ok := s.shared[label]
	return ok
}

func (s *TemplateStore) loadDefaultTemplates() {
	s.shared[intent.Greeting] = []string{
		"Hi there! 👋",
		"Hello! 😊",
		"Hey! Nice to meet you!",
		"Hi! How can I help?",
	}

	s.shared[intent.Gratitude] = []string{
		"You're welcome! 😊 Let me know if you need anything else.",
		"Happy to help! 🙌 Is there anything else you'd like to know?",
		"Anytime! Feel free to ask me more about {first_name}'s work.",
	}

	s.shared[intent.Help] = []string{
		"I can help you with:\n" +
			"• Experience and background\n" +
			"• Technical skills\n" +
			"• Projects and portfolio\n" +
			"• Contact information\n" +
			"• Availability and work\n" +
			"• Education and certifications\n\n" +
			"Just ask away! 🤖",
	}

	s.shared[intent.SmallTalk] = []string{
		"I'm focused on {first_name}'s portfolio info. But I can tell you it's always a great time to discuss tech! 😄",
	}

	s.shared[intent.Fallback] = []string{
		`I understand you're asking about "{input}". I can best help with portfolio-related questions. Try asking about experience, skills, or projects! 💡`,
		`Hmm, "{input}" is interesting! I specialize in portfolio information. Maybe ask about {first_name}'s background or work? 🤔`,
		`That's a good question! I couldn't place "{input}", so for portfolio-specific info, try: "What projects have you done?" or "Tell me about your skills" 🎯`,
	}

	s.byPersonality[chat.Professional] = map[intent.Label]string{
		intent.Experience: "I have {experience_count} years of experience in software development. My key roles include:\n" +
			"• {exp1_role} at {exp1_company}\n" +
			"• {exp2_role} at {exp2_company}\n" +
			"• {exp3_role} at {exp3_company}\n\n" +
			"I specialize in creating innovative web applications with modern technologies and best practices.",

		intent.Skills: "My technical expertise includes:\n" +
			"• Frontend: {skill_names}\n" +
			"• Backend: Node.js, Express, MongoDB, PostgreSQL\n" +
			"• Tools & DevOps: Git, Docker, AWS, CI/CD, Kubernetes\n" +
			"• Design Patterns & Architecture: MVC, Microservices, REST APIs\n\n" +
			"I'm committed to writing clean, maintainable code and following industry best practices.",

		intent.Projects: "Here are my featured projects:\n" +
			"1. {proj1_title}: {proj1_description}\n" +
			"2. {proj2_title}: {proj2_description}\n" +
			"3. {proj3_title}: {proj3_description}\n\n" +
			"Each project demonstrates modern development practices and problem-solving skills.",

		intent.Contact: "You can reach me through multiple channels:\n" +
			"• LinkedIn: {linkedin}\n" +
			"• GitHub: {github}\n" +
			"• Email: {email}\n" +
			"• Portfolio: {website}\n\n" +
			"I typically respond within 24 hours and am open to networking opportunities.",

		intent.Availability: "I'm currently available for:\n" +
			"• Full-time positions\n" +
			"• Contract work\n" +
			"• Freelance projects\n" +
			"• Technical consulting\n" +
			"• Open-source collaborations\n\n" +
			"Location: {location}\n" +
			"Remote Work: Available\n" +
			"Relocation: Open to opportunities",

		intent.Technologies: "I work with a comprehensive tech stack:\n" +
			"• Frontend: React, TypeScript, Material-UI, Tailwind CSS, Redux\n" +
			"• Backend: Node.js, Express, Python, Django, FastAPI\n" +
			"• Databases: MongoDB, PostgreSQL, Redis, MySQL\n" +
			"• Cloud: AWS (EC2, S3, Lambda), Docker, Kubernetes, CI/CD\n" +
			"• Testing: Jest, Cypress, React Testing Library\n" +
			"• Tools: Git, Webpack, ESLint, Prettier, VS Code",

		intent.About: "I'm {name}, a passionate {title} with {experience_count} years of experience. " +
			"I specialize in building scalable web applications and solving complex technical challenges. " +
			"My approach combines technical expertise with creative problem-solving to deliver exceptional results.",

		intent.Education: "My educational background includes:\n" +
			"• {degree}\n" +
			"• {school} ({education_year})\n" +
			"• Specialization in Software Engineering and AI\n" +
			"• Relevant coursework: Algorithms, Data Structures, Web Development, Machine Learning",
	}

	s.byPersonality[chat.Friendly] = map[intent.Label]string{
		intent.Experience: "Hey there! 😊 I've been developing software for {experience_count} years. Here's my journey:\n" +
			"• Worked as {exp1_role} at {exp1_company}\n" +
			"• Then {exp2_role} at {exp2_company}\n" +
			"• Currently {exp3_role} at {exp3_company}\n\n" +
			"I love creating web apps that make people's lives easier!",

		intent.Skills: "Here are the skills I'm most excited about! 🚀\n" +
			"• Frontend magic: {skill_names}\n" +
			"• Backend stuff: Node.js, Express, MongoDB\n" +
			"• Cool tools: Git, Docker, AWS\n\n" +
			"I'm always learning new things and enjoy sharing what I know!",

		intent.Contact: "Let's connect! 🤝\n" +
			"• LinkedIn: {linkedin}\n" +
			"• GitHub: {github}\n" +
			"• Email me: {email}\n\n" +
			"Don't be shy - I'd love to hear from you!",

		intent.Availability: "Yes! I'm open to new adventures! 🌟\n" +
			"• Full-time roles\n" +
			"• Contract work\n" +
			"• Fun projects\n" +
			"• Chatting about tech\n\n" +
			"Based in {location} but love remote work!",
	}

	s.byPersonality[chat.Casual] = map[intent.Label]string{
		intent.Experience: "Yo! I've been coding for {experience_count} years. Check it out:\n" +
			"• {exp1_role} @ {exp1_company}\n" +
			"• {exp2_role} @ {exp2_company}\n" +
			"• {exp3_role} @ {exp3_company}\n\n" +
			"Pretty cool, right? 😎",

		intent.Skills: "Skills I rock with:\n" +
			"• Frontend: {skill_names}\n" +
			"• Backend: Node, Express, Mongo\n" +
			"• Tools: Git, Docker, AWS\n\n" +
			"Basically, I make websites do cool things!",

		intent.Contact: "Hit me up! 📱\n" +
			"• LinkedIn: {linkedin}\n" +
			"• GitHub: {github}\n" +
			"• Email: {email}\n\n" +
			"Let's build something awesome!",

		intent.Availability: "Totally down for new gigs! ✌️\n" +
			"• Full-time\n" +
			"• Contract\n" +
			"• Side projects\n\n" +
			"Hanging out in {location}, remote works great too.",
	}
}
