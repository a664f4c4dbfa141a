package access

// branchSynonyms maps a canonical branch requirement (the value stored in
// chat_rooms.required_branch) to every free-text branch a member may have
// registered with that satisfies it. The relation is many-to-many: a
// registered title can appear under several requirements.
var branchSynonyms = map[string][]string{
	"Doktor": {
		"Doktor", "Hekim", "Tıp Doktoru", "Pratisyen Hekim", "Uzman Doktor",
		"Asistan Doktor", "Aile Hekimi",
	},
	"Hemşire": {
		"Hemşire", "Hemşirelik", "Erkek Hemşire", "Yoğun Bakım Hemşiresi",
		"Sağlık Memuru (Hemşire)",
	},
	"Ebe": {
		"Ebe", "Ebelik",
	},
	"Paramedik": {
		"İlk ve Acil Yardım Teknikeri (Paramedik)", "İlk ve Acil Yardım (Paramedik)",
		"Paramedik", "İlk ve Acil Yardım Teknikeri",
	},
	"Acil Tıp Teknisyeni": {
		"Acil Tıp Teknisyeni", "Acil Tıp Teknisyeni (ATT)", "ATT",
		"Acil Tıp Teknikeri", "Sağlık Memuru (Acil Tıp Teknisyeni)",
	},
	"Sağlık Memuru": {
		"Sağlık Memuru", "Toplum Sağlığı", "Sağlık Memuru (Toplum Sağlığı)",
		"Sağlık Memuru (Hemşire)", "Sağlık Memuru (Acil Tıp Teknisyeni)",
	},
	"Eczacı": {
		"Eczacı", "Eczacılık", "Uzman Eczacı",
	},
	"Diş Hekimi": {
		"Diş Hekimi", "Diş Hekimliği", "Dişçi", "Ortodontist",
	},
	"Fizyoterapist": {
		"Fizyoterapist", "Fizyoterapi", "Fizyoterapi ve Rehabilitasyon",
		"Fizik Tedavi ve Rehabilitasyon", "Fizyoterapi Teknikeri",
	},
	"Diyetisyen": {
		"Diyetisyen", "Beslenme ve Diyetetik", "Beslenme Uzmanı",
	},
	"Psikolog": {
		"Psikolog", "Klinik Psikolog", "Psikoloji", "Psikolojik Danışman",
	},
	"Anestezi Teknikeri": {
		"Anestezi Teknikeri", "Anestezi", "Anestezi Teknisyeni",
		"Anestezi ve Reanimasyon Teknikeri",
	},
	"Tıbbi Görüntüleme Teknikeri": {
		"Tıbbi Görüntüleme Teknikeri", "Tıbbi Görüntüleme Teknikleri",
		"Radyoloji Teknikeri", "Radyoloji Teknisyeni", "Röntgen Teknisyeni",
	},
	"Tıbbi Laboratuvar Teknikeri": {
		"Tıbbi Laboratuvar Teknikeri", "Tıbbi Laboratuvar Teknikleri",
		"Tıbbi Laboratuvar Teknisyeni", "Laboratuvar Teknisyeni",
	},
	"Ameliyathane Teknikeri": {
		"Ameliyathane Teknikeri", "Ameliyathane Hizmetleri",
		"Ameliyathane Hizmetleri Teknikeri", "Cerrahi Teknisyen",
	},
	"Odyolog": {
		"Odyolog", "Odyoloji", "Odyometrist", "Odyometri Teknikeri",
	},
	"Optisyen": {
		"Optisyen", "Optisyenlik", "Gözlükçü",
	},
	"Tıbbi Sekreter": {
		"Tıbbi Sekreter", "Tıbbi Dokümantasyon ve Sekreterlik", "Tıbbi Dokümantasyon",
	},
	"Çocuk Gelişimci": {
		"Çocuk Gelişimci", "Çocuk Gelişimi", "Çocuk Gelişimi Uzmanı",
	},
	"Sosyal Hizmet Uzmanı": {
		"Sosyal Hizmet Uzmanı", "Sosyal Hizmet", "Sosyal Hizmetler", "Sosyal Çalışmacı",
	},
	"Yaşlı Bakım Teknikeri": {
		"Yaşlı Bakım Teknikeri", "Yaşlı Bakımı", "Yaşlı Bakım", "Yaşlı Bakım Teknisyeni",
	},
}

// SynonymTable answers whether a registered branch satisfies a canonical
// requirement. It is read-only after construction and safe for concurrent
// use.
type SynonymTable struct {
	sets map[string]map[string]struct{}
}

// NewSynonymTable builds a table from requirement -> accepted branches.
func NewSynonymTable(data map[string][]string) SynonymTable {
	sets := make(map[string]map[string]struct{}, len(data))
	for req, branches := range data {
		set := make(map[string]struct{}, len(branches))
		for _, b := range branches {
			set[b] = struct{}{}
		}
		sets[req] = set
	}
	return SynonymTable{sets: sets}
}

var defaultSynonyms = NewSynonymTable(branchSynonyms)

// DefaultSynonyms returns the built-in table covering every branch room in
// the catalog.
func DefaultSynonyms() SynonymTable { return defaultSynonyms }

// Accepts reports whether branch appears in the accepted set of required.
// Matching is exact; no case folding or trimming.
func (t SynonymTable) Accepts(required, branch string) bool {
	set, ok := t.sets[required]
	if !ok {
		return false
	}
	_, ok = set[branch]
	return ok
}

// Requirements returns the number of canonical requirements in the table.
func (t SynonymTable) Requirements() int { return len(t.sets) }

// Accepted returns the accepted branches for required, in no particular order.
func (t SynonymTable) Accepted(required string) []string {
	set := t.sets[required]
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	return out
}
