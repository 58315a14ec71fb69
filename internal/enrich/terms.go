package enrich

// TermGroup maps a canonical term to the alternative wordings customers and
// documents use for it.
type TermGroup struct {
	Term     string
	Synonyms []string
}

// QuestionGroup lists the questions customers commonly ask about a topic.
type QuestionGroup struct {
	Term      string
	Questions []string
}

// Terms is the static vocabulary used for enrichment and query expansion.
type Terms struct {
	Policy     []TermGroup
	Questions  []QuestionGroup
	Categories []TermGroup
	// CategoryAliases are the words customers use for each catalog category,
	// mostly Vietnamese. They drive query expansion.
	CategoryAliases []TermGroup
	Brands          []TermGroup
}

// DefaultTerms returns the store's built-in vocabulary.
func DefaultTerms() Terms {
	return Terms{
		Policy: []TermGroup{
			{"bảo hành", []string{"warranty", "guarantee", "bao hanh", "bao dam", "đảm bảo", "sửa chữa miễn phí"}},
			{"đổi trả", []string{"return", "exchange", "refund", "doi tra", "hoan tien", "hoàn tiền", "tra lai", "trả lại"}},
			{"thanh toán", []string{"payment", "pay", "purchase", "transaction", "thanh toan", "tra tien", "trả tiền"}},
			{"giao hàng", []string{"delivery", "shipping", "dispatch", "ship", "giao hang", "van chuyen", "vận chuyển"}},
			{"trả góp", []string{"installment", "credit", "loan", "financing", "tra gop", "gop", "mua trước trả sau"}},
			{"bảo mật", []string{"privacy", "security", "protection", "bao mat", "an toan", "an toàn"}},
			{"khiếu nại", []string{"complaint", "claim", "grievance", "khieu nai", "phan nan", "phàn nàn"}},
			{"thành viên", []string{"member", "membership", "account", "thanh vien", "khach hang", "khách hàng"}},
			{"ưu đãi", []string{"discount", "promotion", "offer", "deal", "uu dai", "khuyen mai", "khuyến mãi"}},
		},
		Questions: []QuestionGroup{
			{"bảo hành", []string{
				"Chính sách bảo hành là gì?",
				"Sản phẩm được bảo hành bao lâu?",
				"Làm thế nào để yêu cầu bảo hành?",
				"Có bảo hành tại nhà không?",
				"Bảo hành có bao gồm lỗi này không?",
			}},
			{"đổi trả", []string{
				"Tôi có thể đổi trả sản phẩm không?",
				"Thời hạn đổi trả là bao lâu?",
				"Có phí đổi trả không?",
				"Cần những giấy tờ gì để đổi trả?",
				"Làm thế nào để hoàn tiền?",
			}},
			{"giao hàng", []string{
				"Phí giao hàng là bao nhiêu?",
				"Thời gian giao hàng mất bao lâu?",
				"Có giao hàng tận nhà không?",
				"Có miễn phí giao hàng không?",
				"Tôi có thể theo dõi đơn hàng không?",
			}},
			{"trả góp", []string{
				"Có hỗ trợ mua trả góp không?",
				"Lãi suất trả góp là bao nhiêu?",
				"Cần những giấy tờ gì để mua trả góp?",
				"Thời hạn trả góp tối đa là bao lâu?",
				"Có trả góp lãi suất 0% không?",
			}},
		},
		Categories: []TermGroup{
			{"CPU", []string{"processor", "central processing unit", "microprocessor", "chip"}},
			{"Motherboard", []string{"mainboard", "system board", "logic board", "mobo"}},
			{"RAM", []string{"memory", "random access memory", "system memory", "DIMM"}},
			{"PSU", []string{"power supply", "power unit", "power source"}},
			{"GPU", []string{"graphics card", "video card", "graphics adapter", "display adapter"}},
			{"Storage", []string{"drive", "disk", "memory", "data storage"}},
			{"Case", []string{"chassis", "enclosure", "tower", "cabinet", "housing"}},
			{"Cooling", []string{"thermal solution", "heatsink", "fan", "temperature management"}},
		},
		CategoryAliases: []TermGroup{
			{"CPU", []string{"vi xử lý", "bộ xử lý", "xử lý trung tâm", "chip", "processor"}},
			{"Motherboard", []string{"bo mạch chủ", "mainboard", "main"}},
			{"RAM", []string{"ram", "bộ nhớ", "memory"}},
			{"PSU", []string{"nguồn", "power supply"}},
			{"GPU", []string{"card đồ họa", "vga", "graphics card"}},
			{"Storage", []string{"ổ cứng", "ổ ssd", "ssd", "hdd", "lưu trữ"}},
			{"Cooling", []string{"tản nhiệt", "quạt", "cooler"}},
			{"Case", []string{"vỏ máy tính", "thùng máy", "case"}},
		},
		Brands: []TermGroup{
			{"CPU", []string{"Intel", "AMD", "Ryzen", "Core i3", "Core i5", "Core i7", "Core i9", "Xeon"}},
			{"GPU", []string{"NVIDIA", "AMD", "RTX", "GTX", "Radeon"}},
			{"Motherboard", []string{"ASUS", "Gigabyte", "MSI", "ASRock"}},
			{"RAM", []string{"Corsair", "Kingston", "G.Skill", "Crucial", "ADATA", "TeamGroup"}},
			{"Storage", []string{"Samsung", "Western Digital", "Seagate", "Crucial", "Kingston"}},
		},
	}
}

// CategorySynonyms returns the synonyms for category, matched case-insensitively.
func (t Terms) CategorySynonyms(category string) []string {
	for _, g := range t.Categories {
		if equalFold(g.Term, category) {
			return g.Synonyms
		}
	}
	return nil
}
