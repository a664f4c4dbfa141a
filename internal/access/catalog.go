package access

import "github.com/tbourn/medic-community-backend/internal/domain"

// catalogEntry describes one default room. An empty branch opens the room.
type catalogEntry struct {
	id, name, emoji, description, branch string
}

// defaultCatalog is listed in display priority order.
var defaultCatalog = []catalogEntry{
	{GeneralRoomID, "Genel Sohbet", "💬", "Tüm sağlık profesyonellerine açık sohbet odası", ""},
	{"doktor", "Doktorlar", "🩺", "Hekimler için vaka ve deneyim paylaşımı", "Doktor"},
	{"hemsire", "Hemşireler", "💉", "Hemşirelik uygulamaları ve nöbet sohbetleri", "Hemşire"},
	{"ebe", "Ebeler", "🤱", "Doğum ve anne-bebek sağlığı", "Ebe"},
	{"paramedik", "Paramedikler", "🚑", "Saha ve ambulans deneyimleri", "Paramedik"},
	{"att", "Acil Tıp Teknisyenleri", "🚨", "112 ve acil servis paylaşımları", "Acil Tıp Teknisyeni"},
	{"saglik-memuru", "Sağlık Memurları", "🏥", "Toplum sağlığı ve saha hizmetleri", "Sağlık Memuru"},
	{"eczaci", "Eczacılar", "💊", "İlaç etkileşimleri ve eczane pratiği", "Eczacı"},
	{"dis-hekimi", "Diş Hekimleri", "🦷", "Ağız ve diş sağlığı", "Diş Hekimi"},
	{"fizyoterapist", "Fizyoterapistler", "🦴", "Rehabilitasyon ve egzersiz programları", "Fizyoterapist"},
	{"diyetisyen", "Diyetisyenler", "🥗", "Klinik beslenme", "Diyetisyen"},
	{"psikolog", "Psikologlar", "🧠", "Ruh sağlığı ve danışmanlık", "Psikolog"},
	{"anestezi", "Anestezi Teknikerleri", "😷", "Anestezi ve reanimasyon", "Anestezi Teknikeri"},
	{"radyoloji", "Tıbbi Görüntüleme", "🩻", "Radyoloji ve görüntüleme teknikleri", "Tıbbi Görüntüleme Teknikeri"},
	{"laboratuvar", "Tıbbi Laboratuvar", "🧪", "Laboratuvar süreçleri ve sonuç yorumlama", "Tıbbi Laboratuvar Teknikeri"},
	{"ameliyathane", "Ameliyathane Hizmetleri", "🔬", "Ameliyathane ve sterilizasyon", "Ameliyathane Teknikeri"},
	{"odyolog", "Odyologlar", "👂", "İşitme ve denge", "Odyolog"},
	{"optisyen", "Optisyenler", "👓", "Görme ve gözlük uygulamaları", "Optisyen"},
	{"tibbi-sekreter", "Tıbbi Sekreterler", "📋", "Tıbbi dokümantasyon ve hasta kabul", "Tıbbi Sekreter"},
	{"cocuk-gelisimi", "Çocuk Gelişimi", "🧸", "Çocuk gelişimi ve erken müdahale", "Çocuk Gelişimci"},
	{"sosyal-hizmet", "Sosyal Hizmet", "🤝", "Hastane sosyal hizmetleri", "Sosyal Hizmet Uzmanı"},
	{"yasli-bakim", "Yaşlı Bakım", "👵", "Geriatri ve evde bakım", "Yaşlı Bakım Teknikeri"},
}

// DefaultRooms returns the built-in room catalog in priority order. The
// returned slice is a fresh copy.
func DefaultRooms() []domain.ChatRoom {
	out := make([]domain.ChatRoom, 0, len(defaultCatalog))
	for _, e := range defaultCatalog {
		room := domain.ChatRoom{
			ID:          e.id,
			Name:        e.name,
			Emoji:       e.emoji,
			Description: e.description,
		}
		if e.branch != "" {
			b := e.branch
			room.RequiredBranch = &b
		}
		out = append(out, room)
	}
	return out
}
