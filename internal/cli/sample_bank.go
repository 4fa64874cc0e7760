package cli

import "trivia-quiz/internal/domain"

// sampleQuestions is the bank behind the static provider. Text is
// HTML-encoded the way the live provider sends it.
func sampleQuestions() []domain.RawQuestion {
	return []domain.RawQuestion{
		{
			Type: "multiple", Difficulty: "easy", Category: "General Knowledge",
			Question:         "What is the capital of France?",
			CorrectAnswer:    "Paris",
			IncorrectAnswers: []string{"Lyon", "Marseille", "Nice"},
		},
		{
			Type: "multiple", Difficulty: "easy", Category: "Science &amp; Nature",
			Question:         "What is the chemical symbol for gold?",
			CorrectAnswer:    "Au",
			IncorrectAnswers: []string{"Ag", "Gd", "Go"},
		},
		{
			Type: "multiple", Difficulty: "easy", Category: "Science: Mathematics",
			Question:         "What is 7 &times; 8?",
			CorrectAnswer:    "56",
			IncorrectAnswers: []string{"54", "64", "48"},
		},
		{
			Type: "multiple", Difficulty: "medium", Category: "Entertainment: Film",
			Question:         "Who directed the 1975 film &quot;Jaws&quot;?",
			CorrectAnswer:    "Steven Spielberg",
			IncorrectAnswers: []string{"George Lucas", "Martin Scorsese", "Francis Ford Coppola"},
		},
		{
			Type: "multiple", Difficulty: "medium", Category: "History",
			Question:         "In which year did the Berlin Wall fall?",
			CorrectAnswer:    "1989",
			IncorrectAnswers: []string{"1987", "1991", "1985"},
		},
		{
			Type: "multiple", Difficulty: "easy", Category: "Geography",
			Question:         "Which is the largest ocean on Earth?",
			CorrectAnswer:    "Pacific Ocean",
			IncorrectAnswers: []string{"Atlantic Ocean", "Indian Ocean", "Arctic Ocean"},
		},
		{
			Type: "multiple", Difficulty: "medium", Category: "Science: Computers",
			Question:         "What does &quot;HTTP&quot; stand for?",
			CorrectAnswer:    "HyperText Transfer Protocol",
			IncorrectAnswers: []string{"HyperText Transmission Process", "High Transfer Text Protocol", "Hyperlink Text Transfer Program"},
		},
		{
			Type: "multiple", Difficulty: "hard", Category: "Science &amp; Nature",
			Question:         "Which element has the atomic number 74?",
			CorrectAnswer:    "Tungsten",
			IncorrectAnswers: []string{"Tantalum", "Rhenium", "Osmium"},
		},
		{
			Type: "multiple", Difficulty: "medium", Category: "Entertainment: Books",
			Question:         "Who wrote &quot;One Hundred Years of Solitude&quot;?",
			CorrectAnswer:    "Gabriel Garc&iacute;a M&aacute;rquez",
			IncorrectAnswers: []string{"Jorge Luis Borges", "Mario Vargas Llosa", "Isabel Allende"},
		},
		{
			Type: "multiple", Difficulty: "easy", Category: "Animals",
			Question:         "How many legs does a spider have?",
			CorrectAnswer:    "8",
			IncorrectAnswers: []string{"6", "10", "12"},
		},
		{
			Type: "multiple", Difficulty: "hard", Category: "History",
			Question:         "Which empire was ruled by Mansa Musa?",
			CorrectAnswer:    "Mali Empire",
			IncorrectAnswers: []string{"Songhai Empire", "Ghana Empire", "Kanem Empire"},
		},
		{
			Type: "multiple", Difficulty: "medium", Category: "Geography",
			Question:         "What is the capital of Australia?",
			CorrectAnswer:    "Canberra",
			IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"},
		},
	}
}
