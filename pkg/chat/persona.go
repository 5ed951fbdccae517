package chat

const (
	// PersonaInstruction is the first user turn of every session. It pins the
	// model to the pharmacist persona and tells it to refuse anything that is
	// not about medicine.
	PersonaInstruction = "Kamu adalah seorang apoteker. Tuliskan obat apa yang diinginkan untuk menyembuhkan penyakit anda. Jawaban singkat dan jelas. Tolak pertanyaan selain tentang obat."

	// PersonaAcknowledgement is the model turn answering PersonaInstruction.
	PersonaAcknowledgement = "Baik! Saya akan menjawab pertanyaan Anda tentang obat."
)

// SeedTurns returns the fixed user/model pair every history starts with.
func SeedTurns() []Turn {
	return []Turn{
		{Role: RoleUser, Text: PersonaInstruction},
		{Role: RoleModel, Text: PersonaAcknowledgement},
	}
}
