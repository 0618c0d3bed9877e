//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"gocv.io/x/gocv"

	"leafbot/internal/domain/entity"
)

// LeafSegmenter — классический сегментатор листьев и монеты на OpenCV.
// Листья выделяются по зелёному диапазону HSV, монета — по круглости контура.
type LeafSegmenter struct {
	ReferenceLabel        string
	TargetLabel           string
	MaxSide               int
	MinImageSide          int
	MinAreaRatio          float64
	MinCircularity        float64
	MinSharpnessEdgeRatio float64
}

// NewLeafSegmenter создаёт сегментатор с метками классов из конфигурации.
func NewLeafSegmenter(referenceLabel, targetLabel string) *LeafSegmenter {
	return &LeafSegmenter{
		ReferenceLabel:        referenceLabel,
		TargetLabel:           targetLabel,
		MaxSide:               1024,
		MinImageSide:          400,
		MinAreaRatio:          0.002,
		MinCircularity:        0.72,
		MinSharpnessEdgeRatio: 0.008,
	}
}

// Detect находит на изображении монету и листья и возвращает их контуры.
// Монеты идут в списке первыми, в порядке обхода контуров.
func (d *LeafSegmenter) Detect(ctx context.Context, imageData []byte) (*entity.DetectionSet, error) {
	_ = ctx
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.New("empty image")
	}
	if err := d.checkImageQuality(mat); err != nil {
		return nil, err
	}

	// Приводим изображение к стандартному размеру для стабильных порогов.
	if mat.Cols() > d.MaxSide || mat.Rows() > d.MaxSide {
		scale := float64(d.MaxSide) / float64(maxInt(mat.Cols(), mat.Rows()))
		newW := int(float64(mat.Cols()) * scale)
		newH := int(float64(mat.Rows()) * scale)
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}

	minArea := float64(mat.Cols()*mat.Rows()) * d.MinAreaRatio

	detections := append(d.detectCoins(mat, minArea), d.detectLeaves(mat, minArea)...)

	return &entity.DetectionSet{
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
		Detections:  detections,
	}, nil
}

// detectLeaves выделяет листья по зелёному диапазону HSV.
func (d *LeafSegmenter) detectLeaves(mat gocv.Mat, minArea float64) []entity.Detection {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(35, 40, 30, 0),
		gocv.NewScalar(85, 255, 255, 0),
		&mask)

	// Морфология убирает шум и затягивает мелкие разрывы в маске.
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5))
	defer kernel.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	leaves := make([]entity.Detection, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if gocv.ContourArea(c) < minArea {
			continue
		}
		leaves = append(leaves, d.contourToDetection(c, d.TargetLabel))
	}

	return leaves
}

// detectCoins ищет круглые контуры по границам Кэнни.
func (d *LeafSegmenter) detectCoins(mat gocv.Mat, minArea float64) []entity.Detection {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, 50, 150)

	// Замыкаем разрывы по окружности перед поиском контуров.
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5))
	defer kernel.Close()
	gocv.MorphologyEx(edges, &edges, gocv.MorphClose, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var coins []entity.Detection
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < minArea {
			continue
		}

		perimeter := gocv.ArcLength(c, true)
		if perimeter <= 0 {
			continue
		}
		circularity := 4 * math.Pi * area / (perimeter * perimeter)
		if circularity < d.MinCircularity {
			continue
		}

		coins = append(coins, d.contourToDetection(c, d.ReferenceLabel))
	}

	return coins
}

func (d *LeafSegmenter) contourToDetection(c gocv.PointVector, label string) entity.Detection {
	pts := c.ToPoints()
	polygon := make([]entity.Point, len(pts))
	for i, p := range pts {
		polygon[i] = entity.Point{X: float64(p.X), Y: float64(p.Y)}
	}

	rect := gocv.BoundingRect(c)

	return entity.Detection{
		Label:   label,
		Polygon: polygon,
		Box: entity.BoundingBox{
			X:      float64(rect.Min.X),
			Y:      float64(rect.Min.Y),
			Width:  float64(rect.Dx()),
			Height: float64(rect.Dy()),
		},
	}
}

// Annotate рисует контуры найденных объектов, номера листьев
// и строки Overlay из результата измерения.
func (d *LeafSegmenter) Annotate(imageData []byte, set *entity.DetectionSet, result *entity.MeasurementResult) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	// Координаты детекций заданы в пространстве уменьшенного изображения.
	if set != nil && set.ImageWidth > 0 && set.ImageHeight > 0 &&
		(mat.Cols() != set.ImageWidth || mat.Rows() != set.ImageHeight) {
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(set.ImageWidth, set.ImageHeight), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}

	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	orange := color.RGBA{R: 255, G: 165, A: 255}
	red := color.RGBA{R: 255, A: 255}

	leafNo := 0
	if set != nil {
		for _, det := range set.Detections {
			col := blue
			if det.Label == d.TargetLabel {
				col = green
			}
			drawPolygon(&mat, det.Polygon, col)

			// Номер листа совпадает с индексом измерения: фильтр тот же.
			if det.Label == d.TargetLabel {
				leafNo++
				cx, cy := det.Box.Center()
				gocv.PutText(&mat, fmt.Sprintf("#%d", leafNo), image.Pt(int(cx), int(cy)),
					gocv.FontHersheySimplex, 0.7, green, 2)
			}
		}
	}

	if result != nil {
		palette := []color.RGBA{green, blue, orange}
		for _, line := range result.Overlay {
			col := red
			if result.Success && line.Line-1 < len(palette) {
				col = palette[line.Line-1]
			}
			gocv.PutText(&mat, line.Text, image.Pt(30, 40*line.Line),
				gocv.FontHersheySimplex, 0.8, col, 2)
		}
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func drawPolygon(mat *gocv.Mat, polygon []entity.Point, col color.RGBA) {
	if len(polygon) < 2 {
		return
	}

	pts := make([]image.Point, len(polygon))
	for i, p := range polygon {
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.DrawContours(mat, pv, 0, col, 2)
}

// checkImageQuality отсекает слишком маленькие и смазанные фотографии.
func (d *LeafSegmenter) checkImageQuality(mat gocv.Mat) error {
	if mat.Cols() < d.MinImageSide || mat.Rows() < d.MinImageSide {
		return fmt.Errorf("quality gate failed: image is too small (%dx%d)", mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)

	total := edges.Cols() * edges.Rows()
	if total <= 0 {
		return errors.New("quality gate failed: empty image")
	}
	edgeRatio := float64(gocv.CountNonZero(edges)) / float64(total)
	if edgeRatio < d.MinSharpnessEdgeRatio {
		return fmt.Errorf("quality gate failed: image is blurry (edge_ratio=%.4f)", edgeRatio)
	}

	return nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
