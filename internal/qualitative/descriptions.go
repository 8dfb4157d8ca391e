package qualitative

var descriptions = map[Code]string{
	CodeSB:      "Peserta didik sudah membudaya dalam menunjukkan perilaku pada dimensi ini secara konsisten dan dapat menjadi teladan bagi teman-temannya.",
	CodeB:       "Peserta didik sudah berkembang sesuai harapan dan menunjukkan perilaku pada dimensi ini secara mandiri.",
	CodeC:       "Peserta didik mulai berkembang; perilaku pada dimensi ini sudah tampak namun belum konsisten.",
	CodeR:       "Peserta didik mulai berkembang dengan bimbingan; perilaku pada dimensi ini masih jarang tampak.",
	CodeSR:      "Peserta didik belum menunjukkan perilaku pada dimensi ini dan memerlukan pendampingan intensif.",
	CodeInvalid: "Nilai tidak valid sehingga capaian tidak dapat dideskripsikan.",
}

var recommendations = map[Code]string{
	CodeSB:      "Pertahankan capaian dan berikan kesempatan menjadi fasilitator atau mentor sebaya pada projek berikutnya.",
	CodeB:       "Berikan tantangan yang lebih kompleks agar perilaku pada dimensi ini semakin membudaya.",
	CodeC:       "Berikan umpan balik rutin dan kegiatan refleksi terarah untuk memperkuat konsistensi perilaku.",
	CodeR:       "Lakukan pendampingan terstruktur dan contoh konkret di setiap tahapan projek.",
	CodeSR:      "Susun rencana pendampingan individual bersama wali kelas dan orang tua.",
	CodeInvalid: "Periksa kembali data penilaian sebelum menyusun rekomendasi.",
}

// Description returns the narrative feedback for a qualitative code.
func Description(code Code) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return descriptions[CodeInvalid]
}

// Recommendation returns the development recommendation for a qualitative code.
func Recommendation(code Code) string {
	if r, ok := recommendations[code]; ok {
		return r
	}
	return recommendations[CodeInvalid]
}
