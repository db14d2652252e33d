package models

const (
	TitleSeparator   = " - "
	ContextSeparator = "--------------------------------"

	PassageHeaderTemplate = "\n\n--- 選文：%s ---\n%s"
	NotFoundTemplate      = "\n\n（未找到 %s 的原文）"
	SearchErrorTemplate   = "\n\n（搜尋錯誤：%v）"
	StoreMissingWarning   = "（警告：尚未建立 RAG 資料庫）"
	UnknownTitle          = "未知"

	ParseErrorMarker = "解析錯誤"

	MetaTitle          = "title"
	MetaEra            = "era"
	MetaSource         = "source"
	MetaChunkID        = "chunk_id"
	MetaEmbeddingModel = "embedding_model"
)

// ClassicalTexts are the selectable exam scopes, "<era> - <title>".
var ClassicalTexts = []string{
	"先秦 - 燭之武退秦師",
	"先秦 - 大同與小康",
	"漢魏六朝 - 諫逐客書",
	"漢魏六朝 - 鴻門宴",
	"漢魏六朝 - 桃花源記",
	"唐宋 - 出師表",
	"唐宋 - 師說",
	"唐宋 - 虯髯客傳",
	"唐宋 - 赤壁賦",
	"唐宋 - 晚遊六橋待月記",
	"明清 - 項脊軒志",
	"明清 - 勞山道士",
	"古典臺灣 - 勸和論",
	"古典臺灣 - 鹿港乘桴記",
	"古典臺灣 - 畫菊自序",
}
