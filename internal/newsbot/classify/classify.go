// Package classify assigns topical categories with a bilingual
// (English/Spanish) keyword-frequency scorer.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// General is the catch-all label for articles that match no keywords.
const General = "general"

type category struct {
	label    string
	keywords []string
}

// categories is ordered: on equal scores the earlier label wins.
var categories = []category{
	{"technology", []string{
		"technology", "tech", "software", "hardware", "ai", "artificial intelligence", "robot", "chip", "semiconductor",
		"smartphone", "iphone", "android", "app", "startup", "cyber", "cybersecurity", "internet", "computer", "google",
		"apple", "microsoft", "openai", "cloud", "data", "algorithm",
		"tecnología", "tecnologia", "inteligencia artificial", "programa", "ordenador", "computadora", "móvil", "celular",
		"aplicación", "ciberseguridad", "datos",
	}},
	{"business", []string{
		"business", "economy", "economic", "market", "markets", "stock", "stocks", "shares", "investor", "investors",
		"bank", "inflation", "interest rates", "earnings", "revenue", "profit", "company", "trade", "tariff", "gdp",
		"negocio", "negocios", "economía", "economia", "mercado", "mercados", "bolsa", "acciones", "inversión",
		"inversores", "banco", "inflación", "empresa", "empresas", "comercio", "ganancias", "aranceles",
	}},
	{"sports", []string{
		"sport", "sports", "football", "soccer", "basketball", "baseball", "tennis", "golf", "match", "tournament",
		"league", "championship", "olympic", "olympics", "coach", "goal", "team", "player", "nba", "nfl", "fifa",
		"deporte", "deportes", "fútbol", "futbol", "baloncesto", "tenis", "partido de fútbol", "partido de futbol", "torneo", "liga", "campeonato",
		"entrenador", "gol", "equipo", "jugador", "olímpicos",
	}},
	{"entertainment", []string{
		"entertainment", "movie", "film", "music", "album", "concert", "celebrity", "actor", "actress", "hollywood",
		"netflix", "series", "tv", "television", "festival", "oscar", "grammy", "singer",
		"entretenimiento", "película", "pelicula", "cine", "música", "musica", "concierto", "actriz", "serie",
		"televisión", "cantante", "famoso", "famosa",
	}},
	{"health", []string{
		"health", "medical", "medicine", "hospital", "doctor", "doctors", "disease", "virus", "vaccine", "covid",
		"cancer", "patient", "patients", "mental health", "drug", "outbreak", "nutrition", "fda",
		"salud", "médico", "medico", "medicina", "enfermedad", "vacuna", "paciente", "pacientes", "cáncer",
		"brote", "tratamiento", "hospitalario",
	}},
	{"science", []string{
		"science", "scientist", "scientists", "research", "researchers", "study", "space", "nasa", "planet", "climate",
		"physics", "biology", "chemistry", "astronomy", "galaxy", "species", "fossil", "telescope", "experiment",
		"ciencia", "científico", "científicos", "investigación", "investigadores", "estudio", "espacio", "planeta",
		"clima", "física", "biología", "especie", "telescopio",
	}},
	{"politics", []string{
		"politics", "political", "government", "election", "elections", "president", "senate", "congress",
		"parliament", "minister", "vote", "voters", "campaign", "policy", "law", "democrat", "republican", "white house",
		"política", "politica", "gobierno", "elecciones", "presidente", "senado", "congreso", "parlamento",
		"ministro", "votación", "campaña", "ley", "partido político",
	}},
}

// Labels returns the fixed label set, starting with General.
func Labels() []string {
	labels := []string{General}
	for _, c := range categories {
		labels = append(labels, c.label)
	}
	return labels
}

// Valid reports whether label is in the label set.
func Valid(label string) bool {
	if label == General {
		return true
	}
	for _, c := range categories {
		if c.label == label {
			return true
		}
	}
	return false
}

// Scores returns the keyword match count per label for text.
func Scores(text string) map[string]int {
	text = strings.ToLower(text)
	scores := make(map[string]int, len(categories))
	for _, c := range categories {
		for _, kw := range c.keywords {
			scores[c.label] += CountWord(text, kw)
		}
	}
	return scores
}

// Classify returns the label whose keywords occur most often in the
// lowercase concatenation of title, description and content. Ties keep the
// earlier label; no matches yields General.
func Classify(title, description, content string) string {
	text := strings.ToLower(title + " " + description + " " + content)
	best, bestScore := General, 0
	for _, c := range categories {
		score := 0
		for _, kw := range c.keywords {
			score += CountWord(text, kw)
		}
		if score > bestScore {
			best, bestScore = c.label, score
		}
	}
	return best
}

// CountWord counts occurrences of word in text that are not embedded in a
// longer word. Both arguments are expected in lowercase.
func CountWord(text, word string) int {
	if word == "" {
		return 0
	}
	n := 0
	for i := 0; i <= len(text)-len(word); {
		j := strings.Index(text[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			n++
		}
		i = start + 1
	}
	return n
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}
