// internal/prompt/prompt.go
// Package prompt assembles the generation prompts for each answer path:
// grounded (retrieved context available), ungrounded fallback, and
// multimodal image questions.
package prompt

import (
	"fmt"
	"strings"

	"github.com/chemalabs/chema/internal/rag"
)

// BuildGrounded builds the expert prompt around retrieved context. The
// model is told to use the material without ever citing it, and to flag
// uncertainty instead of inventing detail.
func BuildGrounded(question string, contexts []rag.RetrievedContext, mode Mode) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("[Ngữ liệu %d | độ liên quan %.2f]\n%s", i+1, c.Score, strings.TrimSpace(c.Text))
	}
	contextBlock := strings.Join(blocks, "\n\n---\n\n")

	var b strings.Builder
	b.WriteString("Bạn là ChemA, một chuyên gia Hóa học THPT. ")
	b.WriteString("Vai trò của bạn là cung cấp các câu trả lời sâu sắc, chính xác và dễ hiểu cho học sinh, ")
	b.WriteString("giống như một giáo viên giỏi đang giảng bài.\n\n")

	b.WriteString("Dưới đây là một số kiến thức nền tảng liên quan đến câu hỏi của học sinh:\n---\n")
	b.WriteString(contextBlock)
	b.WriteString("\n---\n\n")

	b.WriteString("Hãy sử dụng kiến thức nền tảng ở trên, kết hợp với hiểu biết chuyên sâu của bạn, ")
	b.WriteString("để soạn một câu trả lời hoàn chỉnh, có chiều sâu và tự nhiên nhất cho câu hỏi sau.\n\n")

	b.WriteString("QUAN TRỌNG:\n")
	b.WriteString("- KHÔNG đề cập đến \"trích dẫn\", \"tài liệu tham khảo\" hay \"kiến thức nền tảng\".\n")
	b.WriteString("- Trả lời trực tiếp vào vấn đề, diễn giải và phân tích như một chuyên gia.\n")
	b.WriteString("- Nếu thông tin không đủ, dựa vào kiến thức phổ thông của bạn; ")
	b.WriteString("nếu vẫn không chắc chắn, hãy nói rõ là \"Mình không có đủ thông tin chi tiết về vấn đề này\".\n")
	writeModeDirective(&b, mode)

	fmt.Fprintf(&b, "\nCâu hỏi: %q\n\nCâu trả lời của bạn:\n", question)
	return b.String()
}

// BuildUngrounded builds the fallback prompt used when no reference
// material scored above the similarity floor.
func BuildUngrounded(question string, mode Mode) string {
	var b strings.Builder
	b.WriteString("Bạn là trợ lý Hóa học THPT thân thiện.\n")
	b.WriteString("Không có tài liệu tham khảo phù hợp cho câu hỏi này, ")
	b.WriteString("hãy trả lời bằng tiếng Việt, dựa trên kiến thức phổ thông của bạn.\n")
	writeModeDirective(&b, mode)
	fmt.Fprintf(&b, "\nCâu hỏi: %s\n", question)
	return b.String()
}

// BuildMultimodal builds the instruction that accompanies an attached
// image. The model first transcribes the photographed problem, then solves
// it.
func BuildMultimodal(question string, mode Mode) string {
	var b strings.Builder
	b.WriteString("Bạn là ChemA, chuyên gia Hóa học THPT. Học sinh gửi kèm một ảnh chụp đề bài.\n\n")
	b.WriteString("Quy trình:\n")
	b.WriteString("1. Đọc và viết lại đầy đủ nội dung đề bài trong ảnh, kể cả ký hiệu hóa học và số liệu.\n")
	b.WriteString("2. Xác định dạng bài và kiến thức liên quan.\n")
	b.WriteString("3. Hướng dẫn giải chi tiết từng bước, bằng tiếng Việt.\n")
	writeModeDirective(&b, mode)
	if q := strings.TrimSpace(question); q != "" {
		fmt.Fprintf(&b, "\nGhi chú kèm theo của học sinh: %s\n", q)
	}
	return b.String()
}

func writeModeDirective(b *strings.Builder, mode Mode) {
	if d := mode.directive(); d != "" {
		b.WriteString("\n")
		b.WriteString(d)
		b.WriteString("\n")
	}
}
