package bulletin

// College describes one notice source.
//
// ListURL/BaseURL are the public listing, always reachable. When
// IntranetURL is set the college also has a campus-only listing that is
// preferred whenever a WebVPN session is available; the public pair
// then acts as a fallback.
type College struct {
	Id   string
	Name string

	ListURL string
	// base domain for resolving relative article links
	BaseURL string

	IntranetURL  string
	IntranetBase string
}

// Colleges is the fixed scrape order. Deliberately compile-time data:
// adding a college means adding its markup to the test fixtures too.
var Colleges = []College{
	{
		Id:      "sis",
		Name:    "外国语学院",
		ListURL: "http://www.sis.zju.edu.cn/sischinese/12577/list.htm",
		BaseURL: "http://www.sis.zju.edu.cn",
	},
	{
		Id:   "cs",
		Name: "计算机科学与技术学院",
		// real notices (即时更新), campus network only
		IntranetURL:  "http://cspo.zju.edu.cn/86671/list.htm",
		IntranetBase: "http://cspo.zju.edu.cn",
		// public fallback: college news (新闻动态)
		ListURL: "http://www.cs.zju.edu.cn/csen/xwdt_38564/list.htm",
		BaseURL: "http://www.cs.zju.edu.cn",
	},
	{
		Id:      "ckc",
		Name:    "竺可桢学院",
		ListURL: "http://ckc.zju.edu.cn/54005/list.htm",
		BaseURL: "http://ckc.zju.edu.cn",
	},
}
